package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/structura-io/structura/modules/selections/domain/entities/selection"
	"github.com/structura-io/structura/pkg/composables"
)

var ErrQuestionNotFound = fmt.Errorf("selection question not found")

const questionFindQuery = `
	SELECT id, category_id, tenant_id, prompt, sort_order, is_deleted, created_at, updated_at
	FROM selection_questions`

type QuestionRepository struct{}

func NewQuestionRepository() selection.QuestionRepository {
	return &QuestionRepository{}
}

func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*selection.Question, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, questionFindQuery+" WHERE id = $1 AND is_deleted = false FOR UPDATE", id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query question")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, errors.Wrap(err, "question row iteration error")
		}
		return nil, ErrQuestionNotFound
	}
	return scanQuestion(rows)
}

func (r *QuestionRepository) ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]*selection.Question, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, questionFindQuery+" WHERE category_id = $1 AND is_deleted = false ORDER BY sort_order", categoryID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list questions")
	}
	defer rows.Close()

	var questions []*selection.Question
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, question)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "question row iteration error")
	}
	return questions, nil
}

func (r *QuestionRepository) Create(ctx context.Context, question *selection.Question) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO selection_questions (id, category_id, tenant_id, prompt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
	`
	_, err = tx.Exec(ctx, query, question.ID, question.CategoryID, question.TenantID, question.Prompt)
	if err != nil {
		return errors.Wrap(err, "failed to create question")
	}
	return nil
}

func (r *QuestionRepository) Rephrase(ctx context.Context, id uuid.UUID, prompt string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, "UPDATE selection_questions SET prompt = $2, updated_at = now() WHERE id = $1 AND is_deleted = false", id, prompt)
	if err != nil {
		return errors.Wrap(err, "failed to update question")
	}
	if tag.RowsAffected() == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

func (r *QuestionRepository) MarkDeletedByCategory(ctx context.Context, categoryID uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	query := `
		UPDATE selection_questions
		SET is_deleted = true, sort_order = 0, updated_at = now()
		WHERE category_id = $1 AND is_deleted = false
	`
	_, err = tx.Exec(ctx, query, categoryID)
	if err != nil {
		return errors.Wrap(err, "failed to delete questions")
	}
	return nil
}

func scanQuestion(row pgx.Row) (*selection.Question, error) {
	var (
		question selection.Question
		order    int
	)
	if err := row.Scan(
		&question.ID,
		&question.CategoryID,
		&question.TenantID,
		&question.Prompt,
		&order,
		&question.IsDeleted,
		&question.CreatedAt,
		&question.UpdatedAt,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan question row")
	}
	question.Position = toPosition(order)
	return &question, nil
}
