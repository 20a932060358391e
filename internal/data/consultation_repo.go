package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/voicebot/consultd/internal/data/pgxutil"
	"github.com/voicebot/consultd/internal/domain/model"
	apperrors "github.com/voicebot/consultd/internal/errors"
)

const (
	consultationInsertQuery = `
		INSERT INTO consultation_records (
			account_id, session_index, contact_id, question_set_id, occurred_at, runtime_seconds,
			overall_script, summary, result, fail_code, need_human,
			result_vulnerabilities, delete_vulnerabilities, new_vulnerabilities
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at`

	consultationListByContactQuery = `
		SELECT id, account_id, session_index, contact_id, question_set_id, occurred_at, runtime_seconds,
			overall_script, summary, result, fail_code, need_human,
			result_vulnerabilities, delete_vulnerabilities, new_vulnerabilities, created_at
		FROM consultation_records
		WHERE contact_id = $1
		ORDER BY session_index DESC
		LIMIT $2`

	// Deleting through a bounded id subquery keeps each statement's lock footprint small.
	consultationDeleteOlderThanQuery = `
		DELETE FROM consultation_records
		WHERE id IN (
			SELECT id FROM consultation_records
			WHERE occurred_at < $1
			ORDER BY occurred_at
			LIMIT $2
		)`
)

// ConsultationRepo implements core.HistoryStore and core.HistoryRetention.
type ConsultationRepo struct {
	DB *sql.DB
}

// NewConsultationRepo creates a ConsultationRepo.
func NewConsultationRepo(db *sql.DB) *ConsultationRepo {
	return &ConsultationRepo{DB: db}
}

// Save inserts rec and fills in its generated id and created_at.
func (r *ConsultationRepo) Save(ctx context.Context, rec *model.ConsultationRecord) error {
	if rec == nil {
		return ErrNilRecord
	}
	if rec.ContactID == "" {
		return ErrContactIDRequired
	}

	vulns := make([][]byte, 0, 3)
	for _, v := range []model.VulnerabilityInfo{
		rec.ResultVulnerabilities, rec.DeleteVulnerabilities, rec.NewVulnerabilities,
	} {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode vulnerabilities: %w", err)
		}
		vulns = append(vulns, raw)
	}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, consultationInsertQuery,
			rec.AccountID, rec.SessionIndex, rec.ContactID, rec.QuestionSetID, rec.OccurredAt, rec.RuntimeSeconds,
			rec.OverallScript, rec.Summary, rec.Result, rec.FailCode, rec.NeedHuman,
			vulns[0], vulns[1], vulns[2],
		).Scan(&rec.ID, &rec.CreatedAt)
	})
	if err != nil {
		return fmt.Errorf("save consultation record: %w", apperrors.MapDBError(err))
	}
	return nil
}

// ListByContact returns the contact's most recent records, newest session first.
func (r *ConsultationRepo) ListByContact(ctx context.Context, contactID string, limit int) ([]model.ConsultationRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var out []model.ConsultationRecord
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, consultationListByContactQuery, contactID, limit)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.ConsultationRecord])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list consultation records: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// DeleteOlderThan removes up to batchSize records that occurred before cutoff.
func (r *ConsultationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	var deleted int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, consultationDeleteOlderThanQuery, cutoff, batchSize)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete consultation records: %w", apperrors.MapDBError(err))
	}
	return deleted, nil
}
