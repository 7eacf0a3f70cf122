package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// db is the subset of pgxpool.Pool used by PostgresRepository.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB accepts any pgx-compatible handle (tests use pgxmock).
func NewPostgresRepositoryWithDB(db db) *PostgresRepository {
	if db == nil {
		panic("leads: db required")
	}
	return &PostgresRepository{db: db}
}

const leadColumns = `id, session_id, name, phone, email, meeting_time, description, answers, report, status, created_at`

// Save inserts the lead unless one already exists for the session.
func (r *PostgresRepository) Save(ctx context.Context, lead *Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	answers, err := json.Marshal(lead.Answers)
	if err != nil {
		return fmt.Errorf("leads: marshal answers: %w", err)
	}

	query := `
		INSERT INTO leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (session_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query,
		lead.ID,
		lead.SessionID,
		lead.Name,
		lead.Phone,
		lead.Email,
		lead.MeetingTime,
		lead.Description,
		answers,
		lead.Report,
		string(lead.Status),
		lead.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("leads: insert failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var existing string
		if err := r.db.QueryRow(ctx, `SELECT id FROM leads WHERE session_id = $1`, lead.SessionID).Scan(&existing); err != nil {
			return fmt.Errorf("leads: lookup existing lead: %w", err)
		}
		lead.ID = existing
	}
	return nil
}

// GetByID fetches a single lead.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	lead, err := scanLead(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return lead, nil
}

// ListRecent returns leads newest first.
func (r *PostgresRepository) ListRecent(ctx context.Context, filter ListFilter) ([]*Lead, error) {
	filter = filter.normalized()
	query := `SELECT ` + leadColumns + ` FROM leads ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	defer rows.Close()

	out := make([]*Lead, 0, filter.Limit)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		out = append(out, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	return out, nil
}

func scanLead(row pgx.Row) (*Lead, error) {
	var (
		lead    Lead
		answers []byte
		status  string
	)
	if err := row.Scan(
		&lead.ID,
		&lead.SessionID,
		&lead.Name,
		&lead.Phone,
		&lead.Email,
		&lead.MeetingTime,
		&lead.Description,
		&answers,
		&lead.Report,
		&status,
		&lead.CreatedAt,
	); err != nil {
		return nil, err
	}
	lead.Status = Status(status)
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &lead.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
	}
	return &lead, nil
}
