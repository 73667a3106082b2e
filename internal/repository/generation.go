package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/arctic-chat/internal/models"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type GenerationRepository struct {
	db *pgxpool.Pool
}

type GenerationFilter struct {
	SessionID *uuid.UUID
	Success   *bool
	Aborted   *bool
}

type GenerationRecord struct {
	ID           uuid.UUID `json:"id"`
	SessionID    uuid.UUID `json:"session_id"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	PromptTokens int       `json:"prompt_tokens"`
	Temperature  float64   `json:"temperature"`
	TopP         float64   `json:"top_p"`
	Response     *string   `json:"response,omitempty"`
	ImageURL     *string   `json:"image_url,omitempty"`
	Aborted      bool      `json:"aborted"`
	Success      bool      `json:"success"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	LatencyMS    int64     `json:"latency_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewGenerationRepository создает репозиторий логов генерации.
func NewGenerationRepository(db *pgxpool.Pool) *GenerationRepository {
	return &GenerationRepository{db: db}
}

// LogGeneration сохраняет один проход генерации ответа.
func (r *GenerationRepository) LogGeneration(ctx context.Context, log models.GenerationLog) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO generation_requests
		 (session_id, provider, model, prompt, prompt_tokens, temperature, top_p, response, image_url, aborted, success, error_message, latency_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10, $11, $12, $13)`,
		log.SessionID,
		log.Provider,
		log.Model,
		log.Prompt,
		log.PromptTokens,
		log.Temperature,
		log.TopP,
		log.Response,
		log.ImageURL,
		log.Aborted,
		log.Success,
		log.ErrorMessage,
		log.Latency.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert generation request: %w", err)
	}
	return nil
}

// ListGenerations возвращает последние логи генерации по фильтру.
func (r *GenerationRepository) ListGenerations(ctx context.Context, filter GenerationFilter, limit int) ([]GenerationRecord, error) {
	where, args := buildGenerationWhere(filter)
	args = append(args, clampLimit(limit))

	query := fmt.Sprintf(
		`SELECT id, session_id, provider, model, prompt_tokens, temperature, top_p, response, image_url, aborted, success, error_message, latency_ms, created_at
		 FROM generation_requests%s ORDER BY created_at DESC LIMIT $%d`,
		where, len(args),
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]GenerationRecord, 0)
	for rows.Next() {
		var record GenerationRecord
		if err := rows.Scan(
			&record.ID,
			&record.SessionID,
			&record.Provider,
			&record.Model,
			&record.PromptTokens,
			&record.Temperature,
			&record.TopP,
			&record.Response,
			&record.ImageURL,
			&record.Aborted,
			&record.Success,
			&record.ErrorMessage,
			&record.LatencyMS,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func buildGenerationWhere(filter GenerationFilter) (string, []interface{}) {
	clauses := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)

	if filter.SessionID != nil {
		args = append(args, *filter.SessionID)
		clauses = append(clauses, fmt.Sprintf("session_id = $%d", len(args)))
	}
	if filter.Success != nil {
		args = append(args, *filter.Success)
		clauses = append(clauses, fmt.Sprintf("success = $%d", len(args)))
	}
	if filter.Aborted != nil {
		args = append(args, *filter.Aborted)
		clauses = append(clauses, fmt.Sprintf("aborted = $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// NopGenerations используется, когда база данных отключена.
type NopGenerations struct{}

// LogGeneration ничего не сохраняет.
func (NopGenerations) LogGeneration(context.Context, models.GenerationLog) error {
	return nil
}

// ListGenerations всегда возвращает ErrDisabled.
func (NopGenerations) ListGenerations(context.Context, GenerationFilter, int) ([]GenerationRecord, error) {
	return nil, ErrDisabled
}
