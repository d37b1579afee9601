package bridge

import (
	"encoding/json"

	"github.com/dshills/anote/pkg/types"
)

// Request is one bridge invocation
type Request struct {
	Op      string          `json:"op"`
	Payload json.RawMessage `json:"payload"`
}

// ErrorBody is the error half of a failed Response
type ErrorBody struct {
	Code    types.Code `json:"code"`
	Message string     `json:"message"`
}

// Response is the single line written back to the caller
type Response struct {
	OK    bool       `json:"ok"`
	Data  any        `json:"data,omitempty"`
	Error *ErrorBody `json:"error,omitempty"`
}

// Success wraps data in an ok response
func Success(data any) Response {
	return Response{OK: true, Data: data}
}

// Failure converts err into an error response. Errors without a code are
// reported as INTERNAL with their message.
func Failure(err error) Response {
	return Response{
		OK: false,
		Error: &ErrorBody{
			Code:    types.CodeOf(err),
			Message: err.Error(),
		},
	}
}

// EnsureInboxResult is the data of ensure_inbox
type EnsureInboxResult struct {
	FolderID string `json:"folder_id"`
}

// CreateNoteResult is the data of create_note
type CreateNoteResult struct {
	ID        string `json:"id"`
	FolderID  string `json:"folder_id"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// UpdateNoteResult is the data of update_note
type UpdateNoteResult struct {
	ID        string `json:"id"`
	UpdatedAt int64  `json:"updated_at"`
}

// SearchNotesResult is the data of search_notes
type SearchNotesResult struct {
	Notes []types.NoteSummary `json:"notes"`
}
