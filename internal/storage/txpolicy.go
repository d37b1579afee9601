package storage

import (
	"context"
	"fmt"
)

// TxMode selects when a transaction takes SQLite's write lock.
type TxMode int

const (
	// TxDeferred takes no lock until the first read or write. Readers see
	// one WAL snapshot for the whole transaction.
	TxDeferred TxMode = iota
	// TxImmediate takes the write lock at BEGIN, waiting up to the busy
	// timeout. A check-then-write sequence inside it cannot interleave with
	// another writer.
	TxImmediate
)

func (m TxMode) String() string {
	if m == TxImmediate {
		return "immediate"
	}
	return "deferred"
}

func (m TxMode) begin() string {
	if m == TxImmediate {
		return "BEGIN IMMEDIATE"
	}
	return "BEGIN DEFERRED"
}

// Operation names a store operation for transaction policy and error context.
type Operation string

// Store operations.
const (
	OpMigrate      Operation = "migrate"
	OpEnsureInbox  Operation = "ensure_inbox"
	OpCreateFolder Operation = "create_folder"
	OpRenameFolder Operation = "rename_folder"
	OpMoveFolder   Operation = "move_folder"
	OpDeleteFolder Operation = "delete_folder"
	OpCreateNote   Operation = "create_note"
	OpUpdateNote   Operation = "update_note"
	OpDeleteNote   Operation = "delete_note"
	OpSetPinned    Operation = "set_pinned"
	OpReorderNotes Operation = "reorder_notes"
	OpImport       Operation = "import"
	OpExport       Operation = "export_snapshot"
)

// txPolicies maps every transactional operation to its lock mode.
//
// Immediate is required for ensure_inbox and migrate, whose existence
// checks must hold the write lock. The other writers read before they
// write; a deferred transaction doing that in WAL mode fails with
// SQLITE_BUSY instead of waiting when another writer commits in between,
// so they take the lock up front as well. Export only reads.
var txPolicies = map[Operation]TxMode{
	OpMigrate:      TxImmediate,
	OpEnsureInbox:  TxImmediate,
	OpCreateFolder: TxImmediate,
	OpRenameFolder: TxImmediate,
	OpMoveFolder:   TxImmediate,
	OpDeleteFolder: TxImmediate,
	OpCreateNote:   TxImmediate,
	OpReorderNotes: TxImmediate,
	OpImport:       TxImmediate,
	OpExport:       TxDeferred,
}

// PolicyFor returns the transaction mode used for op.
func PolicyFor(op Operation) TxMode {
	if mode, ok := txPolicies[op]; ok {
		return mode
	}
	return TxImmediate
}

// withTx runs fn inside one transaction on a pinned connection, using the
// mode PolicyFor(op) selects. fn's error rolls the transaction back.
func (s *SQLiteStorage) withTx(ctx context.Context, op Operation, fn func(q querier) error) error {
	mode := PolicyFor(op)

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("%s: acquire connection: %w", op, err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, mode.begin()); err != nil {
		return fmt.Errorf("%s: begin %s transaction: %w", op, mode, err)
	}

	rollback := func() {
		if _, err := conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK"); err != nil {
			s.logger.Debug("rollback failed", "op", string(op), "error", err)
		}
	}

	if err := fn(conn); err != nil {
		rollback()
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		rollback()
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	if mode == TxImmediate {
		s.writes.Add(1)
	}
	return nil
}
