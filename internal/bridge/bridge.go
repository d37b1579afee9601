package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/dshills/anote/pkg/types"
)

// maxRequestSize bounds how much of stdin a request may occupy
const maxRequestSize = 16 << 20

// Opener opens the store for one invocation. The returned closer is
// called once the response is ready.
type Opener func(ctx context.Context) (Backend, io.Closer, error)

// Bridge serves exactly one request per Run
type Bridge struct {
	dispatcher *Dispatcher
	open       Opener
	logger     *slog.Logger
}

// New creates a Bridge that opens storage through open
func New(open Opener, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Bridge{
		dispatcher: NewDispatcher(),
		open:       open,
		logger:     logger,
	}
}

// Run reads one request from in, executes it and writes one response line
// to out. The returned error reports only a failure to write the response;
// request failures are part of the response itself.
func (b *Bridge) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	resp := b.handle(ctx, in)
	if err := json.NewEncoder(out).Encode(resp); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

func (b *Bridge) handle(ctx context.Context, in io.Reader) Response {
	input, err := io.ReadAll(io.LimitReader(in, maxRequestSize))
	if err != nil {
		return Failure(types.Validation("failed to read request from stdin"))
	}

	var req Request
	if err := json.Unmarshal(input, &req); err != nil {
		return Failure(types.Validation("invalid JSON request"))
	}

	call, err := b.dispatcher.Prepare(req.Op, req.Payload)
	if err != nil {
		b.logger.Debug("request rejected", "op", req.Op, "error", err)
		return Failure(err)
	}

	backend, closer, err := b.open(ctx)
	if err != nil {
		b.logger.Error("failed to open store", "error", err)
		return Failure(types.Internal(err))
	}
	defer func() {
		if err := closer.Close(); err != nil {
			b.logger.Warn("failed to close store", "error", err)
		}
	}()

	data, err := call.Exec(ctx, backend)
	if err != nil {
		if types.CodeOf(err) == types.CodeInternal {
			b.logger.Error("operation failed", "op", call.Op, "error", err)
		}
		return Failure(err)
	}
	return Success(data)
}
