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

type QuestionService struct {
	categories selection.CategoryRepository
	questions  selection.QuestionRepository
	ledger     *ordering.Ledger
	publisher  eventbus.EventBus
}

func NewQuestionService(
	categories selection.CategoryRepository,
	questions selection.QuestionRepository,
	questionStore ordering.SiblingStore,
	publisher eventbus.EventBus,
) *QuestionService {
	return &QuestionService{
		categories: categories,
		questions:  questions,
		ledger:     ordering.NewLedger(questionStore),
		publisher:  publisher,
	}
}

type CreateQuestionInput struct {
	CategoryID uuid.UUID
	Prompt     string
	// TargetOrder of 0 appends; 1..N+1 inserts at that slot.
	TargetOrder int
}

func (s *QuestionService) Create(ctx context.Context, tenantID uuid.UUID, in CreateQuestionInput) (*selection.Question, error) {
	in.Prompt = strings.TrimSpace(in.Prompt)
	if in.Prompt == "" {
		return nil, newServiceError(http.StatusBadRequest, "SEL_INVALID_BODY", "prompt is required", nil)
	}

	conf := configuration.Use()
	created, err := withRetry(ctx, conf.MutationRetries, func(ctx context.Context) (*selection.Question, error) {
		return inTx(ctx, tenantID, func(txCtx context.Context) (*selection.Question, error) {
			category, err := s.categories.GetByID(txCtx, in.CategoryID)
			if err != nil {
				return nil, mapPgError(err)
			}
			if category.TenantID != tenantID {
				return nil, newServiceError(http.StatusForbidden, "SEL_FORBIDDEN", "category belongs to another tenant", nil)
			}

			question := &selection.Question{
				ID:         uuid.New(),
				CategoryID: in.CategoryID,
				TenantID:   tenantID,
				Prompt:     in.Prompt,
			}
			if err := s.questions.Create(txCtx, question); err != nil {
				return nil, mapPgError(err)
			}

			var order int
			if in.TargetOrder == 0 {
				order, err = s.ledger.Append(txCtx, in.CategoryID, question.ID)
			} else {
				order, err = s.ledger.Insert(txCtx, in.CategoryID, question.ID, in.TargetOrder)
			}
			if err != nil {
				return nil, mapPgError(err)
			}
			question.Position = ordering.Active(order)
			return question, nil
		})
	})
	if err != nil {
		return nil, mapPgError(err)
	}

	s.publisher.Publish(selection.QuestionCreatedEvent{Result: *created})
	return created, nil
}

func (s *QuestionService) ListByCategory(ctx context.Context, tenantID, categoryID uuid.UUID) ([]*selection.Question, error) {
	questions, err := inTx(ctx, tenantID, func(txCtx context.Context) ([]*selection.Question, error) {
		return s.questions.ListByCategory(txCtx, categoryID)
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return questions, nil
}

func (s *QuestionService) Rephrase(ctx context.Context, tenantID, questionID uuid.UUID, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return newServiceError(http.StatusBadRequest, "SEL_INVALID_BODY", "prompt is required", nil)
	}
	_, err := inTx(ctx, tenantID, func(txCtx context.Context) (struct{}, error) {
		if _, err := s.loadQuestion(txCtx, tenantID, questionID); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, s.questions.Rephrase(txCtx, questionID, prompt)
	})
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (s *QuestionService) Move(ctx context.Context, tenantID, categoryID, questionID uuid.UUID, target int) error {
	conf := configuration.Use()
	_, err := withRetry(ctx, conf.MutationRetries, func(ctx context.Context) (struct{}, error) {
		return inTx(ctx, tenantID, func(txCtx context.Context) (struct{}, error) {
			if _, err := s.loadOwnedQuestion(txCtx, tenantID, categoryID, questionID); err != nil {
				return struct{}{}, err
			}
			if err := s.ledger.Move(txCtx, categoryID, questionID, target); err != nil {
				return struct{}{}, mapPgError(err)
			}
			return struct{}{}, nil
		})
	})
	if err != nil {
		return mapPgError(err)
	}

	s.publisher.Publish(selection.QuestionMovedEvent{QuestionID: questionID, SortOrder: target})
	return nil
}

func (s *QuestionService) Delete(ctx context.Context, tenantID, categoryID, questionID uuid.UUID) error {
	conf := configuration.Use()
	_, err := withRetry(ctx, conf.MutationRetries, func(ctx context.Context) (struct{}, error) {
		return inTx(ctx, tenantID, func(txCtx context.Context) (struct{}, error) {
			if _, err := s.loadOwnedQuestion(txCtx, tenantID, categoryID, questionID); err != nil {
				return struct{}{}, err
			}
			if err := s.ledger.Remove(txCtx, categoryID, questionID); err != nil {
				return struct{}{}, mapPgError(err)
			}
			return struct{}{}, nil
		})
	})
	if err != nil {
		return mapPgError(err)
	}

	s.publisher.Publish(selection.QuestionDeletedEvent{QuestionID: questionID})
	return nil
}

func (s *QuestionService) loadQuestion(ctx context.Context, tenantID, questionID uuid.UUID) (*selection.Question, error) {
	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		return nil, mapPgError(err)
	}
	if question.TenantID != tenantID {
		return nil, newServiceError(http.StatusForbidden, "SEL_FORBIDDEN", "question belongs to another tenant", nil)
	}
	return question, nil
}

func (s *QuestionService) loadOwnedQuestion(ctx context.Context, tenantID, categoryID, questionID uuid.UUID) (*selection.Question, error) {
	question, err := s.loadQuestion(ctx, tenantID, questionID)
	if err != nil {
		return nil, err
	}
	if question.CategoryID != categoryID {
		return nil, newServiceError(http.StatusNotFound, "SEL_NOT_FOUND", "question not found under this category", nil)
	}
	return question, nil
}
