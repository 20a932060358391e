package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/voicebot/consultd/internal/data/pgxutil"
	"github.com/voicebot/consultd/internal/domain/model"
	apperrors "github.com/voicebot/consultd/internal/errors"
)

// QuestionSetRepo implements core.QuestionSetCatalog on the question_sets table.
type QuestionSetRepo struct {
	DB *sql.DB
}

// NewQuestionSetRepo creates a QuestionSetRepo.
func NewQuestionSetRepo(db *sql.DB) *QuestionSetRepo {
	return &QuestionSetRepo{DB: db}
}

// FindByID returns the question set or a not_found AppError.
func (r *QuestionSetRepo) FindByID(ctx context.Context, id string) (*model.QuestionSet, error) {
	var qs model.QuestionSet
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT id, title, flow, created_at FROM question_sets WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		qs, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.QuestionSet])
		return err
	})
	if err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsNotFound(mapped) {
			return nil, apperrors.NotFoundf("question set %s not found", id)
		}
		return nil, fmt.Errorf("find question set: %w", mapped)
	}
	return &qs, nil
}

// Save inserts or replaces a question set. It backs the dev seed and admin tooling.
func (r *QuestionSetRepo) Save(ctx context.Context, qs *model.QuestionSet) error {
	if qs == nil {
		return ErrNilRecord
	}
	if qs.ID == "" {
		return apperrors.ValidationField("id", "question set id is required")
	}
	flow, err := json.Marshal(qs.Flow)
	if err != nil {
		return fmt.Errorf("encode flow: %w", err)
	}
	err = pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, `
			INSERT INTO question_sets (id, title, flow)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, flow = EXCLUDED.flow
			RETURNING created_at`,
			qs.ID, qs.Title, flow,
		).Scan(&qs.CreatedAt)
	})
	if err != nil {
		return fmt.Errorf("save question set: %w", apperrors.MapDBError(err))
	}
	return nil
}
