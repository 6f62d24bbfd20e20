package metrics

import (
	"database/sql"

	"codeberg.org/mutker/pcmonitor/internal/errors"
	"codeberg.org/mutker/pcmonitor/internal/logger"
	"codeberg.org/mutker/pcmonitor/internal/telemetry"
)

const (
	SchemaVersion = 1

	// SQL statements derived from schema
	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS snapshots (
	       id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	       captured_at        INTEGER NOT NULL CHECK (typeof(captured_at) = 'integer'),
	       gpu_utilization    INTEGER NOT NULL,
	       gpu_temp_c         INTEGER NOT NULL,
	       gpu_core_clock_mhz INTEGER NOT NULL,
	       gpu_mem_clock_mhz  INTEGER NOT NULL,
	       gpu_vram_used_mb   INTEGER NOT NULL,
	       gpu_vram_total_mb  INTEGER NOT NULL,
	       gpu_power_draw_w   INTEGER NOT NULL,
	       cpu_utilization    REAL    NOT NULL,
	       cpu_temp_c         INTEGER NOT NULL,
	       cpu_clock_mhz      INTEGER NOT NULL,
	       ram_utilization    REAL    NOT NULL,
	       ram_used_mb        INTEGER NOT NULL,
	       storage_read_mbps  INTEGER NOT NULL,
	       storage_write_mbps INTEGER NOT NULL,
	       storage_read_iops  INTEGER NOT NULL,
	       storage_write_iops INTEGER NOT NULL,
	       system_power_w     INTEGER NOT NULL,
	       cpu_power_w        INTEGER NOT NULL,
	       gpu_power_w        INTEGER NOT NULL,
	       psu_efficiency     REAL    NOT NULL,
	       motherboard_temp_c INTEGER NOT NULL,
	       case_temp_c        INTEGER NOT NULL,
	       fan1_rpm           INTEGER NOT NULL,
	       fan2_rpm           INTEGER NOT NULL,
	       fan3_rpm           INTEGER NOT NULL
	   );
	   CREATE INDEX IF NOT EXISTS idx_snapshots_captured_at ON snapshots (captured_at);`

	insertSnapshotSQL = `
    INSERT INTO snapshots (
        captured_at,
        gpu_utilization, gpu_temp_c, gpu_core_clock_mhz, gpu_mem_clock_mhz,
        gpu_vram_used_mb, gpu_vram_total_mb, gpu_power_draw_w,
        cpu_utilization, cpu_temp_c, cpu_clock_mhz,
        ram_utilization, ram_used_mb,
        storage_read_mbps, storage_write_mbps, storage_read_iops, storage_write_iops,
        system_power_w, cpu_power_w, gpu_power_w, psu_efficiency,
        motherboard_temp_c, case_temp_c,
        fan1_rpm, fan2_rpm, fan3_rpm
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
)

// InitSchema creates a new database schema with the current version
func InitSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	log.Debug().Msg("Creating database...")

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	// Track transaction state
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				// Only log if it's not the "already committed" error
				if !errors.Is(err, sql.ErrTxDone) {
					log.Debug().Err(err).Msg("Failed to rollback transaction")
				}
			}
		}
	}()

	// Execute schema creation
	log.Debug().Str("sql", createTablesSQL).Msg("Executing SQL statement")
	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			SQL   string
		}{
			Error: err.Error(),
			SQL:   createTablesSQL,
		})
	}

	log.Debug().Msg("Recording schema version...")
	// Record schema version
	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			Phase string
		}{
			Error: err.Error(),
			Phase: "record_version",
		})
	}

	log.Debug().Msg("Committing transaction...")
	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	log.Info().
		Int("version", SchemaVersion).
		Msg("Schema initialized successfully")

	return nil
}

// GetSchemaVersion returns the current schema version
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := TableExists(db, "schema_versions")
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, err)
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Error string
		}{
			Phase: "get_version",
			Error: err.Error(),
		})
	}

	return version, nil
}

// TableExists checks if a table exists
func TableExists(db *sql.DB, tableName string) (bool, error) {
	errFactory := errors.New()
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
	if err != nil {
		return false, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "check_table_exists",
			Table: tableName,
			Error: err.Error(),
		})
	}
	return exists, nil
}

// SQL getters for consistent schema usage
func GetCreateTablesSQL() string {
	return createTablesSQL
}

// GetInsertSnapshotSQL returns the SQL to insert a snapshot
func GetInsertSnapshotSQL() string {
	return insertSnapshotSQL
}

// snapshotValues flattens a snapshot in insertSnapshotSQL column order
func snapshotValues(s telemetry.Snapshot) []any {
	return []any{
		s.CapturedAt.UnixMilli(),
		int64(s.GPU.UtilizationPercent),
		int64(s.GPU.TemperatureC),
		int64(s.GPU.CoreClockMHz),
		int64(s.GPU.MemoryClockMHz),
		int64(s.GPU.VRAMUsedMB),
		int64(s.GPU.VRAMTotalMB),
		int64(s.GPU.PowerDrawW),
		s.CPU.UtilizationPercent,
		int64(s.CPU.TemperatureC),
		int64(s.CPU.CurrentClockMHz),
		s.RAM.UtilizationPercent,
		int64(s.RAM.UsedMB),
		int64(s.Storage.SeqReadMBps),
		int64(s.Storage.SeqWriteMBps),
		int64(s.Storage.RandomReadIOPS),
		int64(s.Storage.RandomWriteIOPS),
		int64(s.Power.SystemPowerW),
		int64(s.Power.CPUPowerW),
		int64(s.Power.GPUPowerW),
		s.Power.EfficiencyPercent,
		int64(s.Thermal.MotherboardTempC),
		int64(s.Thermal.CaseTempC),
		int64(s.Thermal.FanRPM(0)),
		int64(s.Thermal.FanRPM(1)),
		int64(s.Thermal.FanRPM(2)),
	}
}
