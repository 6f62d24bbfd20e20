// Package metrics archives snapshots to SQLite
package metrics

import "codeberg.org/mutker/pcmonitor/internal/telemetry"

// Recorder accepts snapshots for archiving. Enqueue never blocks on the
// database.
type Recorder interface {
	Enqueue(snapshot telemetry.Snapshot)
	Close() error
	Enabled() bool
}

// Repository stores batches of snapshots
type Repository interface {
	Enqueue(snapshot telemetry.Snapshot)
	Count() (int, error)
	Close() error
}
