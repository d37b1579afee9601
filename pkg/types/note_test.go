package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNote_UnmarshalPinned(t *testing.T) {
	tests := []struct {
		name    string
		pinned  string
		want    bool
		wantErr bool
	}{
		{"true", `"pinned": true`, true, false},
		{"false", `"pinned": false`, false, false},
		{"integer one", `"pinned": 1`, true, false},
		{"integer zero", `"pinned": 0`, false, false},
		{"null", `"pinned": null`, false, false},
		{"absent", `"sort_order": 3`, false, false},
		{"other integer", `"pinned": 2`, false, true},
		{"string", `"pinned": "yes"`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Note
			err := json.Unmarshal([]byte(`{"id": "n1", "folder_id": "f1", "title": "T", `+tt.pinned+`}`), &n)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.Pinned)
			assert.Equal(t, "n1", n.ID)
			assert.Equal(t, "f1", n.FolderID)
			assert.Equal(t, "T", n.Title)
		})
	}
}

func TestNote_MarshalPinnedAsBool(t *testing.T) {
	data, err := json.Marshal(Note{ID: "n1", Pinned: true})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"pinned":true`)
}

func TestNoteDetail_Unmarshal(t *testing.T) {
	var d NoteDetail
	err := json.Unmarshal([]byte(`{"id": "n1", "body": "b", "pinned": 1, "sort_order": 4, "folder_name": "Inbox"}`), &d)
	require.NoError(t, err)
	assert.Equal(t, "n1", d.ID)
	assert.Equal(t, "b", d.Body)
	assert.True(t, d.Pinned)
	assert.Equal(t, 4, d.SortOrder)
	assert.Equal(t, "Inbox", d.FolderName)
}
