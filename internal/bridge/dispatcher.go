package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"

	"github.com/dshills/anote/internal/searcher"
	"github.com/dshills/anote/internal/storage"
	"github.com/dshills/anote/pkg/types"
)

// Operation names accepted by the bridge
const (
	OpEnsureInbox = "ensure_inbox"
	OpCreateNote  = "create_note"
	OpUpdateNote  = "update_note"
	OpSearchNotes = "search_notes"
	OpGetNote     = "get_note"
)

// Backend is the part of the store the bridge exposes
type Backend interface {
	EnsureInbox(ctx context.Context) (string, error)
	CreateNote(ctx context.Context, in storage.NewNote) (*types.Note, error)
	UpdateNote(ctx context.Context, in storage.NoteUpdate) (int64, error)
	GetNote(ctx context.Context, id string) (*types.NoteDetail, error)
	Search(ctx context.Context, req searcher.SearchRequest) (*searcher.SearchResponse, error)
}

// storeBackend joins a store and a searcher into a Backend
type storeBackend struct {
	storage.Storage
	*searcher.Searcher
}

// NewBackend returns a Backend over store that searches through s.
func NewBackend(store storage.Storage, s *searcher.Searcher) Backend {
	return storeBackend{Storage: store, Searcher: s}
}

// Call is a decoded, validated request ready to run against a Backend
type Call struct {
	Op   string
	exec func(ctx context.Context, b Backend) (any, error)
}

// Exec runs the call
func (c *Call) Exec(ctx context.Context, b Backend) (any, error) {
	return c.exec(ctx, b)
}

type handler func(d *Dispatcher, raw json.RawMessage) (*Call, error)

// Dispatcher decodes and validates bridge operations
type Dispatcher struct {
	validator *Validator
	handlers  map[string]handler
}

// NewDispatcher creates a Dispatcher for the five bridge operations
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		validator: NewValidator(),
		handlers: map[string]handler{
			OpEnsureInbox: prepareEnsureInbox,
			OpCreateNote:  prepareCreateNote,
			OpUpdateNote:  prepareUpdateNote,
			OpSearchNotes: prepareSearchNotes,
			OpGetNote:     prepareGetNote,
		},
	}
}

// Operations returns the supported operation names, sorted
func (d *Dispatcher) Operations() []string {
	ops := make([]string, 0, len(d.handlers))
	for op := range d.handlers {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// Prepare resolves op and decodes raw into its validated payload. Every
// failure is a VALIDATION error; nothing here touches storage.
func (d *Dispatcher) Prepare(op string, raw json.RawMessage) (*Call, error) {
	h, ok := d.handlers[op]
	if !ok {
		return nil, types.Validationf("unknown op '%s'", op)
	}
	return h(d, raw)
}

// Dispatch prepares and runs one operation
func (d *Dispatcher) Dispatch(ctx context.Context, b Backend, op string, raw json.RawMessage) (any, error) {
	call, err := d.Prepare(op, raw)
	if err != nil {
		return nil, err
	}
	return call.Exec(ctx, b)
}

// decode unmarshals raw into dst and validates it. A missing or null
// payload decodes as an empty object.
func (d *Dispatcher) decode(op string, raw json.RawMessage, dst any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return types.Validationf("invalid payload for %s", op)
	}
	return d.validator.Validate(dst)
}

func prepareEnsureInbox(_ *Dispatcher, _ json.RawMessage) (*Call, error) {
	return &Call{Op: OpEnsureInbox, exec: func(ctx context.Context, b Backend) (any, error) {
		id, err := b.EnsureInbox(ctx)
		if err != nil {
			return nil, err
		}
		return EnsureInboxResult{FolderID: id}, nil
	}}, nil
}

func prepareCreateNote(d *Dispatcher, raw json.RawMessage) (*Call, error) {
	var p CreateNotePayload
	if err := d.decode(OpCreateNote, raw, &p); err != nil {
		return nil, err
	}
	return &Call{Op: OpCreateNote, exec: func(ctx context.Context, b Backend) (any, error) {
		note, err := b.CreateNote(ctx, storage.NewNote{Title: p.Title, Body: p.Body, FolderID: p.FolderID})
		if err != nil {
			return nil, err
		}
		return CreateNoteResult{
			ID:        note.ID,
			FolderID:  note.FolderID,
			CreatedAt: note.CreatedAt,
			UpdatedAt: note.UpdatedAt,
		}, nil
	}}, nil
}

func prepareUpdateNote(d *Dispatcher, raw json.RawMessage) (*Call, error) {
	var p UpdateNotePayload
	if err := d.decode(OpUpdateNote, raw, &p); err != nil {
		return nil, err
	}
	return &Call{Op: OpUpdateNote, exec: func(ctx context.Context, b Backend) (any, error) {
		updatedAt, err := b.UpdateNote(ctx, storage.NoteUpdate{
			ID: p.ID, Title: p.Title, Body: p.Body, UpdatedAt: p.UpdatedAt,
		})
		if err != nil {
			return nil, err
		}
		return UpdateNoteResult{ID: p.ID, UpdatedAt: updatedAt}, nil
	}}, nil
}

func prepareSearchNotes(d *Dispatcher, raw json.RawMessage) (*Call, error) {
	var p SearchNotesPayload
	if err := d.decode(OpSearchNotes, raw, &p); err != nil {
		return nil, err
	}
	req := searcher.SearchRequest{Limit: searcher.DefaultLimit}
	if p.Query != nil {
		req.Query = *p.Query
	}
	if p.Limit != nil {
		// an explicit limit is clamped, never replaced by the default
		req.Limit = max(1, min(*p.Limit, searcher.MaxLimit))
	}
	return &Call{Op: OpSearchNotes, exec: func(ctx context.Context, b Backend) (any, error) {
		resp, err := b.Search(ctx, req)
		if err != nil {
			return nil, err
		}
		return SearchNotesResult{Notes: resp.Results}, nil
	}}, nil
}

func prepareGetNote(d *Dispatcher, raw json.RawMessage) (*Call, error) {
	var p GetNotePayload
	if err := d.decode(OpGetNote, raw, &p); err != nil {
		return nil, err
	}
	return &Call{Op: OpGetNote, exec: func(ctx context.Context, b Backend) (any, error) {
		return b.GetNote(ctx, p.ID)
	}}, nil
}
