package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pgoos/clark-app-sub007/internal/domain/entity"
	"go.uber.org/zap"
)

// ResponseRepository handles questionnaire response database operations
type ResponseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewResponseRepository creates a new response repository
func NewResponseRepository(db *sql.DB, logger *zap.Logger) *ResponseRepository {
	return &ResponseRepository{db: db, logger: logger}
}

// Create inserts a new response in its initial state
func (r *ResponseRepository) Create(ctx context.Context, response *entity.QuestionnaireResponse) error {
	query := `
		INSERT INTO questionnaire_responses (mandate_id, questionnaire_id, category, state)
		VALUES (?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		response.MandateID,
		response.QuestionnaireID,
		response.Category,
		response.State,
	)
	if err != nil {
		r.logger.Error("Failed to create response", zap.Error(err))
		return fmt.Errorf("failed to create response: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	response.ID = id
	return nil
}

// GetByID retrieves a response by ID; returns nil when not found
func (r *ResponseRepository) GetByID(ctx context.Context, id int64) (*entity.QuestionnaireResponse, error) {
	query := `
		SELECT id, mandate_id, questionnaire_id, category, state, finished_at, created_at, updated_at
		FROM questionnaire_responses
		WHERE id = ?
	`

	var response entity.QuestionnaireResponse
	var finishedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&response.ID,
		&response.MandateID,
		&response.QuestionnaireID,
		&response.Category,
		&response.State,
		&finishedAt,
		&response.CreatedAt,
		&response.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get response", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get response: %w", err)
	}

	if finishedAt.Valid {
		response.FinishedAt = &finishedAt.Time
	}
	return &response, nil
}

// UpdateState persists a state transition
func (r *ResponseRepository) UpdateState(ctx context.Context, id int64, state string) error {
	query := `UPDATE questionnaire_responses SET state = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, state, id); err != nil {
		r.logger.Error("Failed to update response state",
			zap.Int64("id", id), zap.String("state", state), zap.Error(err))
		return fmt.Errorf("failed to update response state: %w", err)
	}
	return nil
}

// SetFinishedAt records when the customer finished the response
func (r *ResponseRepository) SetFinishedAt(ctx context.Context, id int64, finishedAt time.Time) error {
	query := `UPDATE questionnaire_responses SET finished_at = ? WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, finishedAt, id); err != nil {
		r.logger.Error("Failed to set finished_at", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to set finished_at: %w", err)
	}
	return nil
}

// AnswerRepository handles answer database operations. Answers are
// owned by their response; the unique (response_id, question_ident)
// index backs the one-answer-per-question invariant.
type AnswerRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAnswerRepository creates a new answer repository
func NewAnswerRepository(db *sql.DB, logger *zap.Logger) *AnswerRepository {
	return &AnswerRepository{db: db, logger: logger}
}

// Upsert writes the answer, overwriting any existing value for the
// same (response, question) in place
func (r *AnswerRepository) Upsert(ctx context.Context, answer *entity.Answer) error {
	values, err := json.Marshal(answer.Values)
	if err != nil {
		return fmt.Errorf("failed to marshal answer values: %w", err)
	}

	query := `
		INSERT INTO answers (response_id, question_ident, answer_values)
		VALUES (?, ?, ?)
		ON CONFLICT(response_id, question_ident)
		DO UPDATE SET answer_values = excluded.answer_values, updated_at = CURRENT_TIMESTAMP
	`

	if _, err := r.db.ExecContext(ctx, query, answer.ResponseID, answer.QuestionIdent, string(values)); err != nil {
		r.logger.Error("Failed to upsert answer",
			zap.Int64("response_id", answer.ResponseID),
			zap.String("question", answer.QuestionIdent),
			zap.Error(err))
		return fmt.Errorf("failed to upsert answer: %w", err)
	}
	return nil
}

// ListByResponse returns the response's answers in question order
func (r *AnswerRepository) ListByResponse(ctx context.Context, responseID int64) ([]*entity.Answer, error) {
	query := `
		SELECT id, response_id, question_ident, answer_values, created_at, updated_at
		FROM answers
		WHERE response_id = ?
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, responseID)
	if err != nil {
		r.logger.Error("Failed to list answers", zap.Int64("response_id", responseID), zap.Error(err))
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	defer rows.Close()

	var answers []*entity.Answer
	for rows.Next() {
		var answer entity.Answer
		var values string
		if err := rows.Scan(
			&answer.ID,
			&answer.ResponseID,
			&answer.QuestionIdent,
			&values,
			&answer.CreatedAt,
			&answer.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		if err := json.Unmarshal([]byte(values), &answer.Values); err != nil {
			return nil, fmt.Errorf("failed to unmarshal answer values: %w", err)
		}
		answers = append(answers, &answer)
	}
	return answers, rows.Err()
}
