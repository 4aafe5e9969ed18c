package selection

import (
	"context"

	"github.com/google/uuid"
)

type TemplateRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Template, error)
	LockByID(ctx context.Context, id uuid.UUID) (*Template, error)
	List(ctx context.Context) ([]*Template, error)
	Create(ctx context.Context, template *Template) error
	Rename(ctx context.Context, id uuid.UUID, name string) error
	MarkDeleted(ctx context.Context, id uuid.UUID) error
}

type CategoryRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Category, error)
	// ListByTemplate returns non-deleted categories ordered by the given
	// dimension.
	ListByTemplate(ctx context.Context, templateID uuid.UUID, dim Dimension) ([]*Category, error)
	// Create inserts the category without orders; the caller's ledgers assign
	// one per dimension in the same transaction.
	Create(ctx context.Context, category *Category) error
	Rename(ctx context.Context, id uuid.UUID, name string) error
	// MarkDeleted soft-deletes the row and zeroes both order columns at once.
	// Each dimension is compacted separately afterwards.
	MarkDeleted(ctx context.Context, id uuid.UUID) error
}

type QuestionRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Question, error)
	ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]*Question, error)
	Create(ctx context.Context, question *Question) error
	Rephrase(ctx context.Context, id uuid.UUID, prompt string) error
	// MarkDeletedByCategory soft-deletes every question under the category and
	// zeroes their orders.
	MarkDeletedByCategory(ctx context.Context, categoryID uuid.UUID) error
}
