// Package ordering maintains dense, 1-based sibling orderings for
// user-reorderable collections. Every feature that keeps an explicit order
// column (estimate headers, line items, selection categories, questions)
// parameterizes one SiblingStore per ordering dimension and drives it through
// a Ledger; the shift arithmetic lives here exactly once.
package ordering

import (
	"context"

	"github.com/google/uuid"

	"github.com/structura-io/structura/pkg/serrors"
)

var (
	ErrInvalidOrder = serrors.NewError("ORDERING_INVALID_ORDER", "target order outside sibling range")
	ErrNotFound     = serrors.NewError("ORDERING_NOT_FOUND", "node not found among siblings")
)

// Position is the tagged ordering state of a node: active at a 1-based order,
// or deleted. The zero storage encoding (order = 0) never leaks into the API.
type Position struct {
	order int
}

func Active(order int) Position {
	if order < 1 {
		panic("ordering: active position must be >= 1")
	}
	return Position{order: order}
}

func Deleted() Position {
	return Position{}
}

func (p Position) IsDeleted() bool {
	return p.order == 0
}

// Order returns the 1-based order and true for an active position.
func (p Position) Order() (int, bool) {
	if p.order == 0 {
		return 0, false
	}
	return p.order, true
}

type Node struct {
	ID       uuid.UUID
	Position Position
}

// SiblingStore is the transactional persistence collaborator for one ordering
// dimension. Implementations are expected to observe the ambient transaction
// (composables) and to lock the sibling rows they return, so plans are never
// computed against a stale snapshot.
type SiblingStore interface {
	// Siblings returns the non-deleted nodes under parentID in ascending
	// order, locked for the remainder of the transaction.
	Siblings(ctx context.Context, parentID uuid.UUID) ([]Node, error)
	// ShiftRange adds delta to the order of every non-deleted sibling whose
	// order lies in [lo, hi]. A range with lo > hi is a no-op.
	ShiftRange(ctx context.Context, parentID uuid.UUID, lo, hi, delta int) error
	SetOrder(ctx context.Context, id uuid.UUID, order int) error
	// MarkDeleted flags the node deleted and zeroes its stored order.
	MarkDeleted(ctx context.Context, id uuid.UUID) error
}

// ShiftPlan is the sibling adjustment required to realize one move: add Delta
// to every sibling with order in [Lo, Hi].
type ShiftPlan struct {
	Lo    int
	Hi    int
	Delta int
}

func (p ShiftPlan) Empty() bool {
	return p.Delta == 0
}

// PlanMove computes the minimal shift needed to move a node from current to
// target within a sibling set of the given size. Moving to the current
// position yields an empty plan.
func PlanMove(current, target, count int) (ShiftPlan, error) {
	if target < 1 || target > count {
		return ShiftPlan{}, ErrInvalidOrder
	}
	switch {
	case target == current:
		return ShiftPlan{}, nil
	case target < current:
		return ShiftPlan{Lo: target, Hi: current - 1, Delta: 1}, nil
	default:
		return ShiftPlan{Lo: current + 1, Hi: target, Delta: -1}, nil
	}
}

// Ledger exposes the order bookkeeping for one ordering dimension. All
// methods must run inside the caller's transaction; the ledger itself never
// begins or commits one.
type Ledger struct {
	store SiblingStore
}

func NewLedger(store SiblingStore) *Ledger {
	return &Ledger{store: store}
}

// NextOrder returns max(order)+1 over the non-deleted siblings of parentID,
// so the first child gets order 1.
func (l *Ledger) NextOrder(ctx context.Context, parentID uuid.UUID) (int, error) {
	siblings, err := l.store.Siblings(ctx, parentID)
	if err != nil {
		return 0, err
	}
	max := 0
	for _, s := range siblings {
		if order, ok := s.Position.Order(); ok && order > max {
			max = order
		}
	}
	return max + 1, nil
}

func (l *Ledger) OrderOf(ctx context.Context, parentID, id uuid.UUID) (int, error) {
	siblings, err := l.store.Siblings(ctx, parentID)
	if err != nil {
		return 0, err
	}
	order, ok := findOrder(siblings, id)
	if !ok {
		return 0, ErrNotFound
	}
	return order, nil
}

// Append assigns the next free order to id and returns it.
func (l *Ledger) Append(ctx context.Context, parentID, id uuid.UUID) (int, error) {
	next, err := l.NextOrder(ctx, parentID)
	if err != nil {
		return 0, err
	}
	if err := l.store.SetOrder(ctx, id, next); err != nil {
		return 0, err
	}
	return next, nil
}

// Insert places id at target, shifting later siblings back by one. Target
// must lie in [1, N+1] where N counts the existing non-deleted siblings;
// N+1 is equivalent to Append.
func (l *Ledger) Insert(ctx context.Context, parentID, id uuid.UUID, target int) (int, error) {
	siblings, err := l.store.Siblings(ctx, parentID)
	if err != nil {
		return 0, err
	}
	count := len(siblings)
	if target < 1 || target > count+1 {
		return 0, ErrInvalidOrder
	}
	if target <= count {
		if err := l.store.ShiftRange(ctx, parentID, target, count, 1); err != nil {
			return 0, err
		}
	}
	if err := l.store.SetOrder(ctx, id, target); err != nil {
		return 0, err
	}
	return target, nil
}

// Move reorders id to target among its siblings. An idempotent move (target
// equals the current order) touches no rows. After a successful move the
// sibling orders are again a contiguous 1..N permutation with the relative
// order of untouched siblings preserved.
func (l *Ledger) Move(ctx context.Context, parentID, id uuid.UUID, target int) error {
	siblings, err := l.store.Siblings(ctx, parentID)
	if err != nil {
		return err
	}
	current, ok := findOrder(siblings, id)
	if !ok {
		return ErrNotFound
	}
	plan, err := PlanMove(current, target, len(siblings))
	if err != nil {
		return err
	}
	if plan.Empty() {
		return nil
	}
	if err := l.store.ShiftRange(ctx, parentID, plan.Lo, plan.Hi, plan.Delta); err != nil {
		return err
	}
	return l.store.SetOrder(ctx, id, target)
}

// Remove soft-deletes id and closes the gap it leaves: every sibling past the
// vacated order is decremented by one.
func (l *Ledger) Remove(ctx context.Context, parentID, id uuid.UUID) error {
	siblings, err := l.store.Siblings(ctx, parentID)
	if err != nil {
		return err
	}
	current, ok := findOrder(siblings, id)
	if !ok {
		return ErrNotFound
	}
	if err := l.store.MarkDeleted(ctx, id); err != nil {
		return err
	}
	if current < len(siblings) {
		return l.store.ShiftRange(ctx, parentID, current+1, len(siblings), -1)
	}
	return nil
}

// RemoveAt closes the gap left by a node that was already marked deleted at
// removedOrder. Rows that participate in several ordering dimensions are
// deleted once by their repository; the caller then compacts each dimension
// with the order it captured beforehand.
func (l *Ledger) RemoveAt(ctx context.Context, parentID uuid.UUID, removedOrder int) error {
	siblings, err := l.store.Siblings(ctx, parentID)
	if err != nil {
		return err
	}
	max := 0
	for _, s := range siblings {
		if order, ok := s.Position.Order(); ok && order > max {
			max = order
		}
	}
	if removedOrder >= max {
		return nil
	}
	return l.store.ShiftRange(ctx, parentID, removedOrder+1, max, -1)
}

func findOrder(siblings []Node, id uuid.UUID) (int, bool) {
	for _, s := range siblings {
		if s.ID == id {
			return s.Position.Order()
		}
	}
	return 0, false
}
