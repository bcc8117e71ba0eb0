package user

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bjzgcai/calendar/internal/tracing"
)

// PostgresRepository implements Repository over PostgreSQL via
// database/sql and lib/pq.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a Postgres-backed user repository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, dingtalk_id, name, avatar, email, mobile,
	created_at, updated_at`

// Upsert creates or refreshes the account keyed by dingtalk_id.
func (r *PostgresRepository) Upsert(ctx context.Context, p Profile) (u *User, err error) {
	ctx, end := tracing.StartDBSpan(ctx, "users", tracing.DBOperationInsert)
	defer func() { end(err) }()

	query := `
		INSERT INTO users (dingtalk_id, name, avatar, email, mobile, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (dingtalk_id) DO UPDATE SET
			name = EXCLUDED.name,
			avatar = EXCLUDED.avatar,
			email = EXCLUDED.email,
			mobile = EXCLUDED.mobile,
			updated_at = NOW()
		RETURNING ` + userColumns

	row := r.db.QueryRowContext(ctx, query,
		p.DingTalkID, p.Name, nullString(p.Avatar),
		nullString(p.Email), nullString(p.Mobile),
	)
	u, err = scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return u, nil
}

// GetByID retrieves a user by internal id.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (u *User, err error) {
	ctx, end := tracing.StartDBSpan(ctx, "users", tracing.DBOperationQuery)
	defer func() { end(err) }()

	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err = scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	return u, err
}

// GetByDingTalkID retrieves a user by external identity key.
func (r *PostgresRepository) GetByDingTalkID(ctx context.Context, dingtalkID string) (u *User, err error) {
	ctx, end := tracing.StartDBSpan(ctx, "users", tracing.DBOperationQuery)
	defer func() { end(err) }()

	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE dingtalk_id = $1`, dingtalkID)
	u, err = scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	return u, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u      User
		avatar sql.NullString
		email  sql.NullString
		mobile sql.NullString
	)
	err := row.Scan(
		&u.ID, &u.DingTalkID, &u.Name, &avatar, &email, &mobile,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Avatar = avatar.String
	u.Email = email.String
	u.Mobile = mobile.String
	return &u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
