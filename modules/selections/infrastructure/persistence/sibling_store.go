package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/structura-io/structura/modules/selections/domain/entities/selection"
	"github.com/structura-io/structura/pkg/composables"
	"github.com/structura-io/structura/pkg/ordering"
)

// dimensionSpec parameterizes the shared shift logic for one ordering
// dimension. Identifiers come from compile-time constants, never from
// callers.
type dimensionSpec struct {
	table        string
	parentColumn string
	orderColumn  string
}

type siblingStore struct {
	dim dimensionSpec
}

func newSiblingStore(dim dimensionSpec) *siblingStore {
	return &siblingStore{dim: dim}
}

func (s *siblingStore) Siblings(ctx context.Context, parentID uuid.UUID) ([]ordering.Node, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	// FOR UPDATE locks the sibling set. Both dimensions of a category row
	// share the lock, so a move in the initial ordering serializes against a
	// concurrent move in the paint ordering of the same template.
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

func categoryOrderColumn(dim selection.Dimension) string {
	if dim == selection.DimensionPaint {
		return "paint_sort_order"
	}
	return "initial_sort_order"
}

// CategorySiblings is one of the two ordering dimensions of categories under
// a template.
func CategorySiblings(dim selection.Dimension) ordering.SiblingStore {
	return newSiblingStore(dimensionSpec{
		table:        "selection_categories",
		parentColumn: "template_id",
		orderColumn:  categoryOrderColumn(dim),
	})
}

// QuestionSiblings is the ordering dimension of questions under a category.
func QuestionSiblings() ordering.SiblingStore {
	return newSiblingStore(dimensionSpec{
		table:        "selection_questions",
		parentColumn: "category_id",
		orderColumn:  "sort_order",
	})
}
