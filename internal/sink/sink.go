// Package sink writes batches of daily records into a date-keyed tabular
// store. The reconciling upsert is sink-agnostic: it lists existing row keys
// once, partitions the batch into in-place updates and appends, and issues at
// most one batched write of each kind.
package sink

import (
	"context"
	"fmt"
)

// KeyedRow is one existing destination row: its date-cell text and its
// position in the store. Positions are 1-based and include the header row,
// matching what a raw column listing returns.
type KeyedRow struct {
	Date     string
	Position int
}

// RowUpdate rewrites the full contents of an existing row in place.
type RowUpdate struct {
	Position int
	Cells    []string
}

// Sink is a destination store for daily metric rows.
type Sink interface {
	// ListRows returns every existing row key in store order.
	ListRows(ctx context.Context) ([]KeyedRow, error)
	// WriteRows applies in-place updates and appends new rows at the end,
	// each as a single batched operation.
	WriteRows(ctx context.Context, updates []RowUpdate, appends [][]string) error
}

// CredentialError indicates the destination rejected the write because the
// stored credentials are no longer valid. The computed batch is still in the
// caller's hands; the remediation is to re-authorize and run again.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("destination credentials rejected: %v", e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }
