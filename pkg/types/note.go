package types

import (
	"encoding/json"
	"fmt"
)

// InboxName is the name of the implicit root-level default folder.
const InboxName = "Inbox"

// PreviewLength is the number of body characters kept in a NoteSummary.
const PreviewLength = 200

// Folder is a node in the folder forest. ParentID is nil for root folders.
type Folder struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	CreatedAt int64   `json:"created_at"`
	ParentID  *string `json:"parent_id"`
	UpdatedAt int64   `json:"updated_at"`
}

// IsRoot reports whether the folder sits at the top level.
func (f *Folder) IsRoot() bool {
	return f.ParentID == nil
}

// Note is a full note row. Timestamps are Unix milliseconds.
type Note struct {
	ID        string `json:"id"`
	FolderID  string `json:"folder_id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
	Pinned    bool   `json:"pinned"`
	SortOrder int    `json:"sort_order"`
}

// UnmarshalJSON decodes a note, accepting pinned as a JSON boolean or as
// the integers 0 and 1 written by older exports.
func (n *Note) UnmarshalJSON(data []byte) error {
	type plain Note
	aux := struct {
		*plain
		Pinned json.RawMessage `json:"pinned"`
	}{plain: (*plain)(n)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	pinned, err := decodeFlag(aux.Pinned)
	if err != nil {
		return fmt.Errorf("pinned: %w", err)
	}
	n.Pinned = pinned
	return nil
}

// decodeFlag reads true, false, 0, 1 or null
func decodeFlag(raw json.RawMessage) (bool, error) {
	if len(raw) == 0 {
		return false, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, err
	}
	switch x := v.(type) {
	case nil:
		return false, nil
	case bool:
		return x, nil
	case float64:
		switch x {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
	}
	return false, fmt.Errorf("want a boolean or 0/1, got %s", raw)
}

// NoteDetail is a note joined with the name of its folder.
type NoteDetail struct {
	Note
	FolderName string `json:"folder_name"`
}

// UnmarshalJSON decodes the embedded note and the folder name.
func (d *NoteDetail) UnmarshalJSON(data []byte) error {
	if err := d.Note.UnmarshalJSON(data); err != nil {
		return err
	}
	var aux struct {
		FolderName string `json:"folder_name"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d.FolderName = aux.FolderName
	return nil
}

// NoteSummary is the search result shape of a note.
type NoteSummary struct {
	ID         string `json:"id"`
	FolderID   string `json:"folder_id"`
	Title      string `json:"title"`
	Preview    string `json:"preview"`
	UpdatedAt  int64  `json:"updated_at"`
	FolderName string `json:"folder_name"`
}

// NoteMeta is the listing shape of a note: everything but the full body.
type NoteMeta struct {
	ID        string `json:"id"`
	FolderID  string `json:"folder_id"`
	Title     string `json:"title"`
	Preview   string `json:"preview"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
	Pinned    bool   `json:"pinned"`
	SortOrder int    `json:"sort_order"`
}
