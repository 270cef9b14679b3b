// Package ingest holds the shared result type for history importers.
package ingest

// Result holds the outcome of an import.
type Result struct {
	SessionsReceived int `json:"sessions_received"`
	SessionsInserted int `json:"sessions_inserted"`
	SessionsSkipped  int `json:"sessions_skipped"`

	SetsReceived   int `json:"sets_received"`
	SetsImported   int `json:"sets_imported"`
	WarmupsSkipped int `json:"warmups_skipped"`

	MetricsReceived   int `json:"metrics_received,omitempty"`
	MetricsSkipped    int `json:"metrics_skipped,omitempty"`
	SnapshotsInserted int `json:"snapshots_inserted,omitempty"`
	SnapshotsSkipped  int `json:"snapshots_skipped,omitempty"`

	Message string `json:"message,omitempty"`
}
