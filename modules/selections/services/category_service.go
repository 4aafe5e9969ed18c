package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/structura-io/structura/modules/selections/domain/entities/selection"
	"github.com/structura-io/structura/pkg/configuration"
	"github.com/structura-io/structura/pkg/eventbus"
	"github.com/structura-io/structura/pkg/ordering"
)

// CategoryService manages categories and their two independent orderings.
// One row participates in both; a move or insert in one dimension never
// disturbs the other, while a delete leaves the row once and compacts each
// surviving sibling set separately.
type CategoryService struct {
	templates  selection.TemplateRepository
	categories selection.CategoryRepository
	questions  selection.QuestionRepository
	ledgers    map[selection.Dimension]*ordering.Ledger
	publisher  eventbus.EventBus
}

func NewCategoryService(
	templates selection.TemplateRepository,
	categories selection.CategoryRepository,
	questions selection.QuestionRepository,
	initialStore ordering.SiblingStore,
	paintStore ordering.SiblingStore,
	publisher eventbus.EventBus,
) *CategoryService {
	return &CategoryService{
		templates:  templates,
		categories: categories,
		questions:  questions,
		ledgers: map[selection.Dimension]*ordering.Ledger{
			selection.DimensionInitial: ordering.NewLedger(initialStore),
			selection.DimensionPaint:   ordering.NewLedger(paintStore),
		},
		publisher: publisher,
	}
}

type CreateCategoryInput struct {
	TemplateID uuid.UUID
	Name       string
	// TargetOrder of 0 appends in the initial ordering; the paint ordering
	// always appends, since new categories have no paint position yet.
	TargetOrder int
}

func (s *CategoryService) Create(ctx context.Context, tenantID uuid.UUID, in CreateCategoryInput) (*selection.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, newServiceError(http.StatusBadRequest, "SEL_INVALID_BODY", "name is required", nil)
	}

	conf := configuration.Use()
	created, err := withRetry(ctx, conf.MutationRetries, func(ctx context.Context) (*selection.Category, error) {
		return inTx(ctx, tenantID, func(txCtx context.Context) (*selection.Category, error) {
			template, err := s.templates.LockByID(txCtx, in.TemplateID)
			if err != nil {
				return nil, mapPgError(err)
			}
			if template.TenantID != tenantID {
				return nil, newServiceError(http.StatusForbidden, "SEL_FORBIDDEN", "template belongs to another tenant", nil)
			}
			if err := s.checkReservedDuplicate(txCtx, in.TemplateID, in.Name, uuid.Nil); err != nil {
				return nil, err
			}

			category := &selection.Category{
				ID:         uuid.New(),
				TemplateID: in.TemplateID,
				TenantID:   tenantID,
				Name:       in.Name,
			}
			if err := s.categories.Create(txCtx, category); err != nil {
				return nil, mapPgError(err)
			}

			var initialOrder int
			if in.TargetOrder == 0 {
				initialOrder, err = s.ledgers[selection.DimensionInitial].Append(txCtx, in.TemplateID, category.ID)
			} else {
				initialOrder, err = s.ledgers[selection.DimensionInitial].Insert(txCtx, in.TemplateID, category.ID, in.TargetOrder)
			}
			if err != nil {
				return nil, mapPgError(err)
			}
			paintOrder, err := s.ledgers[selection.DimensionPaint].Append(txCtx, in.TemplateID, category.ID)
			if err != nil {
				return nil, mapPgError(err)
			}

			category.InitialPosition = ordering.Active(initialOrder)
			category.PaintPosition = ordering.Active(paintOrder)
			return category, nil
		})
	})
	if err != nil {
		return nil, mapPgError(err)
	}

	s.publisher.Publish(selection.CategoryCreatedEvent{Result: *created})
	return created, nil
}

func (s *CategoryService) GetByID(ctx context.Context, tenantID, categoryID uuid.UUID) (*selection.Category, error) {
	category, err := inTx(ctx, tenantID, func(txCtx context.Context) (*selection.Category, error) {
		return s.loadCategory(txCtx, tenantID, categoryID)
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return category, nil
}

func (s *CategoryService) ListByTemplate(ctx context.Context, tenantID, templateID uuid.UUID, dim selection.Dimension) ([]*selection.Category, error) {
	categories, err := inTx(ctx, tenantID, func(txCtx context.Context) ([]*selection.Category, error) {
		return s.categories.ListByTemplate(txCtx, templateID, dim)
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return categories, nil
}

// Move repositions the category within one dimension only.
func (s *CategoryService) Move(ctx context.Context, tenantID, templateID, categoryID uuid.UUID, dim selection.Dimension, target int) error {
	ledger, ok := s.ledgers[dim]
	if !ok {
		return newServiceError(http.StatusBadRequest, "SEL_INVALID_BODY", "unknown ordering dimension", nil)
	}

	conf := configuration.Use()
	_, err := withRetry(ctx, conf.MutationRetries, func(ctx context.Context) (struct{}, error) {
		return inTx(ctx, tenantID, func(txCtx context.Context) (struct{}, error) {
			if _, err := s.loadOwnedCategory(txCtx, tenantID, templateID, categoryID); err != nil {
				return struct{}{}, err
			}
			if err := ledger.Move(txCtx, templateID, categoryID, target); err != nil {
				return struct{}{}, mapPgError(err)
			}
			return struct{}{}, nil
		})
	})
	if err != nil {
		return mapPgError(err)
	}

	s.publisher.Publish(selection.CategoryMovedEvent{CategoryID: categoryID, Dimension: dim, SortOrder: target})
	return nil
}

func (s *CategoryService) Rename(ctx context.Context, tenantID, categoryID uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return newServiceError(http.StatusBadRequest, "SEL_INVALID_BODY", "name is required", nil)
	}
	_, err := inTx(ctx, tenantID, func(txCtx context.Context) (struct{}, error) {
		category, err := s.loadCategory(txCtx, tenantID, categoryID)
		if err != nil {
			return struct{}{}, err
		}
		if selection.IsReservedCategoryName(category.Name) {
			return struct{}{}, newServiceError(http.StatusForbidden, "SEL_PROTECTED_NAME", "reserved categories cannot be renamed", nil)
		}
		if err := s.checkReservedDuplicate(txCtx, category.TemplateID, name, category.ID); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, s.categories.Rename(txCtx, categoryID, name)
	})
	if err != nil {
		return mapPgError(err)
	}
	s.publisher.Publish(selection.CategoryRenamedEvent{CategoryID: categoryID, Name: name})
	return nil
}

// Delete soft-deletes the category once and compacts both dimensions with the
// orders captured before the row went invisible. Questions under the category
// are cascaded.
func (s *CategoryService) Delete(ctx context.Context, tenantID, templateID, categoryID uuid.UUID) error {
	conf := configuration.Use()
	deleted, err := withRetry(ctx, conf.MutationRetries, func(ctx context.Context) (int, error) {
		return inTx(ctx, tenantID, func(txCtx context.Context) (int, error) {
			category, err := s.loadOwnedCategory(txCtx, tenantID, templateID, categoryID)
			if err != nil {
				return 0, err
			}
			if selection.IsReservedCategoryName(category.Name) {
				return 0, newServiceError(http.StatusForbidden, "SEL_PROTECTED_NAME", "reserved categories cannot be deleted", nil)
			}

			// Lock both sibling orderings before the row disappears from
			// either, so concurrent moves cannot plan around a half-deleted
			// category.
			initialOrder, err := s.ledgers[selection.DimensionInitial].OrderOf(txCtx, templateID, categoryID)
			if err != nil {
				return 0, mapPgError(err)
			}
			paintOrder, err := s.ledgers[selection.DimensionPaint].OrderOf(txCtx, templateID, categoryID)
			if err != nil {
				return 0, mapPgError(err)
			}

			questions, err := s.questions.ListByCategory(txCtx, categoryID)
			if err != nil {
				return 0, mapPgError(err)
			}
			if err := s.questions.MarkDeletedByCategory(txCtx, categoryID); err != nil {
				return 0, mapPgError(err)
			}
			if err := s.categories.MarkDeleted(txCtx, categoryID); err != nil {
				return 0, mapPgError(err)
			}

			if err := s.ledgers[selection.DimensionInitial].RemoveAt(txCtx, templateID, initialOrder); err != nil {
				return 0, mapPgError(err)
			}
			if err := s.ledgers[selection.DimensionPaint].RemoveAt(txCtx, templateID, paintOrder); err != nil {
				return 0, mapPgError(err)
			}
			return len(questions), nil
		})
	})
	if err != nil {
		return mapPgError(err)
	}

	s.publisher.Publish(selection.CategoryDeletedEvent{CategoryID: categoryID, QuestionsDeleted: deleted})
	return nil
}

func (s *CategoryService) checkReservedDuplicate(ctx context.Context, templateID uuid.UUID, name string, selfID uuid.UUID) error {
	if !selection.IsReservedCategoryName(name) {
		return nil
	}
	siblings, err := s.categories.ListByTemplate(ctx, templateID, selection.DimensionInitial)
	if err != nil {
		return mapPgError(err)
	}
	for _, sib := range siblings {
		if sib.ID != selfID && selection.SameName(sib.Name, name) {
			return newServiceError(http.StatusForbidden, "SEL_PROTECTED_NAME", "a reserved category with this name already exists", nil)
		}
	}
	return nil
}

func (s *CategoryService) loadCategory(ctx context.Context, tenantID, categoryID uuid.UUID) (*selection.Category, error) {
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		return nil, mapPgError(err)
	}
	if category.TenantID != tenantID {
		return nil, newServiceError(http.StatusForbidden, "SEL_FORBIDDEN", "category belongs to another tenant", nil)
	}
	return category, nil
}

func (s *CategoryService) loadOwnedCategory(ctx context.Context, tenantID, templateID, categoryID uuid.UUID) (*selection.Category, error) {
	category, err := s.loadCategory(ctx, tenantID, categoryID)
	if err != nil {
		return nil, err
	}
	if category.TemplateID != templateID {
		return nil, newServiceError(http.StatusNotFound, "SEL_NOT_FOUND", "category not found under this template", nil)
	}
	return category, nil
}
