package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/structura-io/structura/modules/questionnaire/domain/entities/questionnaire"
	"github.com/structura-io/structura/modules/questionnaire/infrastructure/persistence"
	"github.com/structura-io/structura/pkg/composables"
	"github.com/structura-io/structura/pkg/configuration"
	"github.com/structura-io/structura/pkg/eventbus"
	"github.com/structura-io/structura/pkg/ordering"
)

// QuestionnaireService manages questionnaire templates and their single
// ordered level of categories.
type QuestionnaireService struct {
	templates  questionnaire.TemplateRepository
	categories questionnaire.CategoryRepository
	ledger     *ordering.Ledger
	publisher  eventbus.EventBus
}

func NewQuestionnaireService(
	templates questionnaire.TemplateRepository,
	categories questionnaire.CategoryRepository,
	categoryStore ordering.SiblingStore,
	publisher eventbus.EventBus,
) *QuestionnaireService {
	return &QuestionnaireService{
		templates:  templates,
		categories: categories,
		ledger:     ordering.NewLedger(categoryStore),
		publisher:  publisher,
	}
}

type ServiceError struct {
	Status    int
	Code      string
	Message   string
	Retryable bool
	Cause     error
}

func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

func newServiceError(status int, code, message string, cause error) *ServiceError {
	return &ServiceError{Status: status, Code: code, Message: message, Cause: cause}
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}

	switch {
	case errors.Is(err, ordering.ErrInvalidOrder):
		return newServiceError(http.StatusBadRequest, "QN_INVALID_ORDER", "target order outside sibling range", err)
	case errors.Is(err, ordering.ErrNotFound):
		return newServiceError(http.StatusNotFound, "QN_NOT_FOUND", "node not found", err)
	case errors.Is(err, persistence.ErrTemplateNotFound),
		errors.Is(err, persistence.ErrCategoryNotFound),
		errors.Is(err, pgx.ErrNoRows):
		return newServiceError(http.StatusNotFound, "QN_NOT_FOUND", "not found", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return &ServiceError{
				Status:    http.StatusConflict,
				Code:      "QN_CONFLICT",
				Message:   "concurrent modification, retry",
				Retryable: true,
				Cause:     err,
			}
		default:
			return newServiceError(http.StatusInternalServerError, "QN_INTERNAL", fmt.Sprintf("database error (%s)", pgErr.Code), err)
		}
	}
	return err
}

// inTx binds the tenant and runs fn through the shared tenant transaction
// helper, bounded by the configured mutation timeout.
func inTx[T any](ctx context.Context, tenantID uuid.UUID, fn func(txCtx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, configuration.Use().MutationTimeout)
	defer cancel()

	return composables.InTenantTxResult(composables.WithTenantID(ctx, tenantID), fn)
}

func withRetry[T any](ctx context.Context, attempts int, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		zero T
		last error
	)
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if !isRetryable(err) {
			return zero, err
		}
		last = err
	}
	return zero, mapError(last)
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return true
		}
	}
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.Retryable
}

func (s *QuestionnaireService) CreateTemplate(ctx context.Context, tenantID uuid.UUID, name string) (*questionnaire.Template, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newServiceError(http.StatusBadRequest, "QN_INVALID_BODY", "name is required", nil)
	}

	template := &questionnaire.Template{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     name,
	}
	created, err := inTx(ctx, tenantID, func(txCtx context.Context) (*questionnaire.Template, error) {
		if err := s.templates.Create(txCtx, template); err != nil {
			return nil, mapError(err)
		}
		return s.templates.GetByID(txCtx, template.ID)
	})
	if err != nil {
		return nil, mapError(err)
	}

	s.publisher.Publish(questionnaire.TemplateCreatedEvent{Result: *created})
	return created, nil
}

func (s *QuestionnaireService) ListTemplates(ctx context.Context, tenantID uuid.UUID) ([]*questionnaire.Template, error) {
	templates, err := inTx(ctx, tenantID, func(txCtx context.Context) ([]*questionnaire.Template, error) {
		return s.templates.List(txCtx)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return templates, nil
}

func (s *QuestionnaireService) DeleteTemplate(ctx context.Context, tenantID, templateID uuid.UUID) error {
	_, err := inTx(ctx, tenantID, func(txCtx context.Context) (struct{}, error) {
		if _, err := s.loadTemplate(txCtx, tenantID, templateID); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, s.templates.MarkDeleted(txCtx, templateID)
	})
	if err != nil {
		return mapError(err)
	}
	s.publisher.Publish(questionnaire.TemplateDeletedEvent{TemplateID: templateID})
	return nil
}

type CreateCategoryInput struct {
	TemplateID uuid.UUID
	Name       string
	// TargetOrder of 0 appends; 1..N+1 inserts at that slot.
	TargetOrder int
}

func (s *QuestionnaireService) CreateCategory(ctx context.Context, tenantID uuid.UUID, in CreateCategoryInput) (*questionnaire.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, newServiceError(http.StatusBadRequest, "QN_INVALID_BODY", "name is required", nil)
	}

	conf := configuration.Use()
	created, err := withRetry(ctx, conf.MutationRetries, func(ctx context.Context) (*questionnaire.Category, error) {
		return inTx(ctx, tenantID, func(txCtx context.Context) (*questionnaire.Category, error) {
			if _, err := s.lockTemplate(txCtx, tenantID, in.TemplateID); err != nil {
				return nil, err
			}

			category := &questionnaire.Category{
				ID:         uuid.New(),
				TemplateID: in.TemplateID,
				TenantID:   tenantID,
				Name:       in.Name,
			}
			if err := s.categories.Create(txCtx, category); err != nil {
				return nil, mapError(err)
			}

			var (
				order int
				err   error
			)
			if in.TargetOrder == 0 {
				order, err = s.ledger.Append(txCtx, in.TemplateID, category.ID)
			} else {
				order, err = s.ledger.Insert(txCtx, in.TemplateID, category.ID, in.TargetOrder)
			}
			if err != nil {
				return nil, mapError(err)
			}
			category.Position = ordering.Active(order)
			return category, nil
		})
	})
	if err != nil {
		return nil, mapError(err)
	}

	s.publisher.Publish(questionnaire.CategoryCreatedEvent{Result: *created})
	return created, nil
}

func (s *QuestionnaireService) ListCategories(ctx context.Context, tenantID, templateID uuid.UUID) ([]*questionnaire.Category, error) {
	categories, err := inTx(ctx, tenantID, func(txCtx context.Context) ([]*questionnaire.Category, error) {
		return s.categories.ListByTemplate(txCtx, templateID)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return categories, nil
}

func (s *QuestionnaireService) MoveCategory(ctx context.Context, tenantID, templateID, categoryID uuid.UUID, target int) error {
	conf := configuration.Use()
	_, err := withRetry(ctx, conf.MutationRetries, func(ctx context.Context) (struct{}, error) {
		return inTx(ctx, tenantID, func(txCtx context.Context) (struct{}, error) {
			if _, err := s.loadOwnedCategory(txCtx, tenantID, templateID, categoryID); err != nil {
				return struct{}{}, err
			}
			if err := s.ledger.Move(txCtx, templateID, categoryID, target); err != nil {
				return struct{}{}, mapError(err)
			}
			return struct{}{}, nil
		})
	})
	if err != nil {
		return mapError(err)
	}

	s.publisher.Publish(questionnaire.CategoryMovedEvent{CategoryID: categoryID, SortOrder: target})
	return nil
}

func (s *QuestionnaireService) DeleteCategory(ctx context.Context, tenantID, templateID, categoryID uuid.UUID) error {
	conf := configuration.Use()
	_, err := withRetry(ctx, conf.MutationRetries, func(ctx context.Context) (struct{}, error) {
		return inTx(ctx, tenantID, func(txCtx context.Context) (struct{}, error) {
			if _, err := s.loadOwnedCategory(txCtx, tenantID, templateID, categoryID); err != nil {
				return struct{}{}, err
			}
			if err := s.ledger.Remove(txCtx, templateID, categoryID); err != nil {
				return struct{}{}, mapError(err)
			}
			return struct{}{}, nil
		})
	})
	if err != nil {
		return mapError(err)
	}

	s.publisher.Publish(questionnaire.CategoryDeletedEvent{CategoryID: categoryID})
	return nil
}

func (s *QuestionnaireService) loadTemplate(ctx context.Context, tenantID, templateID uuid.UUID) (*questionnaire.Template, error) {
	template, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		return nil, mapError(err)
	}
	if template.TenantID != tenantID {
		return nil, newServiceError(http.StatusForbidden, "QN_FORBIDDEN", "template belongs to another tenant", nil)
	}
	return template, nil
}

func (s *QuestionnaireService) lockTemplate(ctx context.Context, tenantID, templateID uuid.UUID) (*questionnaire.Template, error) {
	template, err := s.templates.LockByID(ctx, templateID)
	if err != nil {
		return nil, mapError(err)
	}
	if template.TenantID != tenantID {
		return nil, newServiceError(http.StatusForbidden, "QN_FORBIDDEN", "template belongs to another tenant", nil)
	}
	return template, nil
}

func (s *QuestionnaireService) loadOwnedCategory(ctx context.Context, tenantID, templateID, categoryID uuid.UUID) (*questionnaire.Category, error) {
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		return nil, mapError(err)
	}
	if category.TenantID != tenantID {
		return nil, newServiceError(http.StatusForbidden, "QN_FORBIDDEN", "category belongs to another tenant", nil)
	}
	if category.TemplateID != templateID {
		return nil, newServiceError(http.StatusNotFound, "QN_NOT_FOUND", "category not found under this template", nil)
	}
	return category, nil
}
