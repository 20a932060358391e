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

const (
	contactSelectByIDQuery = `
		SELECT id, name, gender, birth_date, phone, address, vulnerability, created_at, updated_at
		FROM contacts
		WHERE id = $1`

	contactUpsertQuery = `
		INSERT INTO contacts (id, name, gender, birth_date, phone, address, vulnerability, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			gender = EXCLUDED.gender,
			birth_date = EXCLUDED.birth_date,
			phone = EXCLUDED.phone,
			address = EXCLUDED.address,
			vulnerability = EXCLUDED.vulnerability,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at`
)

// ContactRepo implements core.ContactDirectory on the contacts table.
type ContactRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewContactRepo creates a ContactRepo.
func NewContactRepo(db *sql.DB) *ContactRepo {
	return &ContactRepo{DB: db, timeProvider: RealTimeProvider{}}
}

// NewContactRepoWithTimeProvider creates a ContactRepo with a custom TimeProvider (useful for testing).
func NewContactRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ContactRepo {
	return &ContactRepo{DB: db, timeProvider: tp}
}

// FindByID returns the contact or a not_found AppError.
func (r *ContactRepo) FindByID(ctx context.Context, id string) (*model.Contact, error) {
	var c model.Contact
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, contactSelectByIDQuery, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		c, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Contact])
		return err
	})
	if err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsNotFound(mapped) {
			return nil, apperrors.NotFoundf("contact %s not found", id)
		}
		return nil, fmt.Errorf("find contact: %w", mapped)
	}
	return &c, nil
}

// Save inserts or updates the contact and refreshes its timestamps.
func (r *ContactRepo) Save(ctx context.Context, c *model.Contact) error {
	if c == nil {
		return ErrNilRecord
	}
	if c.ID == "" {
		return ErrContactIDRequired
	}
	address, err := json.Marshal(c.Address)
	if err != nil {
		return fmt.Errorf("encode address: %w", err)
	}
	vulnerability, err := json.Marshal(c.Vulnerability)
	if err != nil {
		return fmt.Errorf("encode vulnerability: %w", err)
	}

	now := r.timeProvider.Now()
	err = pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, contactUpsertQuery,
			c.ID, c.Name, c.Gender, c.BirthDate, c.Phone, address, vulnerability, now,
		).Scan(&c.CreatedAt, &c.UpdatedAt)
	})
	if err != nil {
		return fmt.Errorf("save contact: %w", apperrors.MapDBError(err))
	}
	return nil
}
