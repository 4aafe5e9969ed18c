package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/structura-io/structura/pkg/composables"
	"github.com/structura-io/structura/pkg/ordering"
)

// dimension identifies one ordering dimension: an integer order column on a
// child table, scoped by a parent foreign key and filtered by the deletion
// flag. Each feature parameterizes the shared shift logic with one of these
// instead of carrying its own copy.
type dimension struct {
	table        string
	parentColumn string
	orderColumn  string
}

// siblingStore is the pgx implementation of ordering.SiblingStore for one
// dimension. All identifiers come from compile-time constants, never from
// callers, so building the statements by name is safe.
type siblingStore struct {
	dim dimension
}

func newSiblingStore(dim dimension) *siblingStore {
	return &siblingStore{dim: dim}
}

func (s *siblingStore) Siblings(ctx context.Context, parentID uuid.UUID) ([]ordering.Node, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	// FOR UPDATE so a concurrent move or delete against the same sibling set
	// blocks until this transaction finishes rather than planning against a
	// stale snapshot.
	query := fmt.Sprintf(
		"SELECT id, %s FROM %s WHERE %s = $1 AND is_deleted = false ORDER BY %s FOR UPDATE",
		s.dim.orderColumn, s.dim.table, s.dim.parentColumn, s.dim.orderColumn,
	)
	rows, err := tx.Query(ctx, query, parentID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read siblings")
	}
	defer rows.Close()

	var nodes []ordering.Node
	for rows.Next() {
		var (
			id    uuid.UUID
			order int
		)
		if err := rows.Scan(&id, &order); err != nil {
			return nil, errors.Wrap(err, "failed to scan sibling row")
		}
		if order < 1 {
			// Inserted in this transaction but not ordered yet.
			continue
		}
		nodes = append(nodes, ordering.Node{ID: id, Position: ordering.Active(order)})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sibling row iteration error")
	}
	return nodes, nil
}

func (s *siblingStore) ShiftRange(ctx context.Context, parentID uuid.UUID, lo, hi, delta int) error {
	if lo > hi || delta == 0 {
		return nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(
		"UPDATE %s SET %s = %s + $2, updated_at = now() WHERE %s = $1 AND is_deleted = false AND %s BETWEEN $3 AND $4",
		s.dim.table, s.dim.orderColumn, s.dim.orderColumn, s.dim.parentColumn, s.dim.orderColumn,
	)
	_, err = tx.Exec(ctx, query, parentID, delta, lo, hi)
	if err != nil {
		return errors.Wrap(err, "failed to shift sibling range")
	}
	return nil
}

func (s *siblingStore) SetOrder(ctx context.Context, id uuid.UUID, order int) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(
		"UPDATE %s SET %s = $2, updated_at = now() WHERE id = $1",
		s.dim.table, s.dim.orderColumn,
	)
	_, err = tx.Exec(ctx, query, id, order)
	if err != nil {
		return errors.Wrap(err, "failed to set sibling order")
	}
	return nil
}

func (s *siblingStore) MarkDeleted(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(
		"UPDATE %s SET is_deleted = true, %s = 0, updated_at = now() WHERE id = $1",
		s.dim.table, s.dim.orderColumn,
	)
	_, err = tx.Exec(ctx, query, id)
	if err != nil {
		return errors.Wrap(err, "failed to mark sibling deleted")
	}
	return nil
}

// HeaderSiblings is the ordering dimension of estimate headers under a sheet.
func HeaderSiblings() ordering.SiblingStore {
	return newSiblingStore(dimension{
		table:        "estimate_headers",
		parentColumn: "sheet_id",
		orderColumn:  "sort_order",
	})
}

// LineItemSiblings is the ordering dimension of line items under a header.
func LineItemSiblings() ordering.SiblingStore {
	return newSiblingStore(dimension{
		table:        "estimate_line_items",
		parentColumn: "header_id",
		orderColumn:  "sort_order",
	})
}
