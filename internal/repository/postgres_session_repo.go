package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/bitmeme/internal/model"
)

const sessionColumns = `id, account_id, expires_at, created_at`

// PostgresSessionRepo はsessionsテーブルに対するSessionRepositoryの実装。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

func scanSession(row rowScanner) (*model.Session, error) {
	s := &model.Session{}
	if err := row.Scan(&s.ID, &s.AccountID, &s.ExpiresAt, &s.CreatedAt); err != nil {
		return nil, err
	}
	return s, nil
}

// Create はログイン時に発行したセッションを保存する。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES ($1, $2, $3, $4)`,
		session.ID, session.AccountID, session.ExpiresAt, session.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID は有効期限内のセッションを取得する。期限切れ・存在しない場合はnilを返す。
func (r *PostgresSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1 AND expires_at > now()`,
		id,
	))
	switch {
	case err == sql.ErrNoRows:
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return s, nil
}

// DeleteByID はログアウトしたセッションを削除する。
func (r *PostgresSessionRepo) DeleteByID(ctx context.Context, id string) error {
	return r.deleteWhere(ctx, `id = $1`, id, "session")
}

// DeleteByAccountID はアカウントの全セッションを削除する。
func (r *PostgresSessionRepo) DeleteByAccountID(ctx context.Context, accountID string) error {
	return r.deleteWhere(ctx, `account_id = $1`, accountID, "account sessions")
}

func (r *PostgresSessionRepo) deleteWhere(ctx context.Context, where, arg, what string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE `+where, arg); err != nil {
		return fmt.Errorf("failed to delete %s: %w", what, err)
	}
	return nil
}

var _ SessionRepository = (*PostgresSessionRepo)(nil)
