// Package questionnaire models buyer questionnaires: per-tenant templates
// with one ordered level of categories beneath them.
package questionnaire

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/structura-io/structura/pkg/ordering"
)

type Template struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Category struct {
	ID         uuid.UUID
	TemplateID uuid.UUID
	TenantID   uuid.UUID
	Name       string
	Position   ordering.Position
	IsDeleted  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

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
	// ListByTemplate returns non-deleted categories in ascending order.
	ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]*Category, error)
	Create(ctx context.Context, category *Category) error
	Rename(ctx context.Context, id uuid.UUID, name string) error
}

type TemplateCreatedEvent struct {
	Result Template
}

type TemplateDeletedEvent struct {
	TemplateID uuid.UUID
}

type CategoryCreatedEvent struct {
	Result Category
}

type CategoryMovedEvent struct {
	CategoryID uuid.UUID
	SortOrder  int
}

type CategoryDeletedEvent struct {
	CategoryID uuid.UUID
}
