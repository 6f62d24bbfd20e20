package metrics

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/pcmonitor/internal/errors"
	"codeberg.org/mutker/pcmonitor/internal/logger"
	"codeberg.org/mutker/pcmonitor/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = filepath.Join(t.TempDir(), "data", "snapshots.db")
	return cfg
}

func testSnapshot(i int) telemetry.Snapshot {
	return telemetry.Snapshot{
		CapturedAt: time.Unix(1700000000+int64(i), 0),
		GPU:        telemetry.GPUMetrics{TemperatureC: 70, VRAMUsedMB: uint32(1000 + i)},
		CPU:        telemetry.CPUMetrics{UtilizationPercent: 33.5},
		Power:      telemetry.PowerMetrics{SystemPowerW: 410, EfficiencyPercent: 88.2},
		Thermal:    telemetry.ThermalMetrics{FanSpeedsRPM: []uint32{1200, 1400}},
	}
}

func countRows(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&n))
	return n
}

func TestDisabledServiceIsNoop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "never.db")

	rec, err := NewService(cfg, logger.Nop())
	require.NoError(t, err)
	assert.False(t, rec.Enabled())

	rec.Enqueue(testSnapshot(0))
	require.NoError(t, rec.Close())

	_, err = os.Stat(cfg.DBPath)
	assert.True(t, os.IsNotExist(err))
}

func TestCloseFlushesPendingSnapshots(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchTimeout = time.Hour

	rec, err := NewService(cfg, logger.Nop())
	require.NoError(t, err)
	assert.True(t, rec.Enabled())

	for i := 0; i < 5; i++ {
		rec.Enqueue(testSnapshot(i))
	}
	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close())

	assert.Equal(t, 5, countRows(t, cfg.DBPath))
}

func TestFullBatchFlushesWithoutClose(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 3
	cfg.BatchTimeout = time.Hour

	repo, err := NewRepository(cfg, logger.Nop())
	require.NoError(t, err)
	defer repo.Close()

	for i := 0; i < 3; i++ {
		repo.Enqueue(testSnapshot(i))
	}

	require.Eventually(t, func() bool {
		n, err := repo.Count()
		return err == nil && n == 3
	}, 5*time.Second, 10*time.Millisecond)
}

func TestTimeoutFlushesPartialBatch(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchTimeout = 20 * time.Millisecond

	repo, err := NewRepository(cfg, logger.Nop())
	require.NoError(t, err)
	defer repo.Close()

	repo.Enqueue(testSnapshot(0))

	require.Eventually(t, func() bool {
		n, err := repo.Count()
		return err == nil && n == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStoredColumns(t *testing.T) {
	cfg := testConfig(t)
	repo, err := NewRepository(cfg, logger.Nop())
	require.NoError(t, err)

	repo.Enqueue(testSnapshot(7))
	require.NoError(t, repo.Close())

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()

	var (
		capturedAt int64
		vram       int64
		cpuUtil    float64
		fan2, fan3 int64
	)
	err = db.QueryRow(`SELECT captured_at, gpu_vram_used_mb, cpu_utilization, fan2_rpm, fan3_rpm FROM snapshots`).
		Scan(&capturedAt, &vram, &cpuUtil, &fan2, &fan3)
	require.NoError(t, err)

	assert.Equal(t, time.Unix(1700000007, 0).UnixMilli(), capturedAt)
	assert.Equal(t, int64(1007), vram)
	assert.InDelta(t, 33.5, cpuUtil, 0.001)
	assert.Equal(t, int64(1400), fan2)
	assert.Equal(t, int64(0), fan3)
}

func TestSchemaMismatchBacksUpAndRecreates(t *testing.T) {
	cfg := testConfig(t)

	repo, err := NewRepository(cfg, logger.Nop())
	require.NoError(t, err)
	repo.Enqueue(testSnapshot(0))
	require.NoError(t, repo.Close())

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	_, err = db.Exec("UPDATE schema_versions SET version = ?", SchemaVersion+41)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	repo, err = NewRepository(cfg, logger.Nop())
	require.NoError(t, err)
	n, err := repo.Count()
	require.NoError(t, err)
	assert.Zero(t, n, "schema was recreated")
	require.NoError(t, repo.Close())

	backups, err := filepath.Glob(filepath.Join(backupDirFor(cfg.DBPath), "snapshots_v42_*.db"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Enabled = true
	require.NoError(t, cfg.Validate())

	cfg.DBPath = ""
	assert.True(t, errors.HasCode(cfg.Validate(), ErrInvalidDBPath))

	cfg = DefaultConfig()
	cfg.Enabled = true
	cfg.BatchSize = 0
	assert.True(t, errors.HasCode(cfg.Validate(), ErrInvalidConfig))

	_, err := NewService(cfg, logger.Nop())
	assert.True(t, errors.HasCode(err, ErrInvalidConfig))
}

func TestMigrationDropsOnlyOwnTables(t *testing.T) {
	cfg := testConfig(t)
	cfg.BackupOnMigrate = false

	repo, err := NewRepository(cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE metrics (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)
	_, err = db.Exec("UPDATE schema_versions SET version = ?", SchemaVersion+1)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	repo, err = NewRepository(cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	db, err = sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()

	exists, err := TableExists(db, "metrics")
	require.NoError(t, err)
	assert.True(t, exists, "tables outside the snapshot schema are left alone")

	version, err := GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)
}
