package types

// SnapshotVersion is the format version written into every snapshot.
const SnapshotVersion = "1.0"

// Snapshot is a full logical dump of the store.
type Snapshot struct {
	Version    string   `json:"version"`
	ExportedAt int64    `json:"exportedAt"`
	Folders    []Folder `json:"folders"`
	Notes      []Note   `json:"notes"`
}
