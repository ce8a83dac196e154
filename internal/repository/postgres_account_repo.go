package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/bitmeme/internal/model"
)

const accountColumns = `id, username, email, password_hash, confirmed, confirmed_on, joined_at`

// PostgresAccountRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	a := &model.Account{}
	var confirmedOn sql.NullTime
	if err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.Confirmed, &confirmedOn, &a.JoinedAt); err != nil {
		return nil, err
	}
	if confirmedOn.Valid {
		t := confirmedOn.Time
		a.ConfirmedOn = &t
	}
	return a, nil
}

func (r *PostgresAccountRepo) findOne(ctx context.Context, where string, arg string) (*model.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE `+where,
		arg,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	a, err := r.findOne(ctx, `id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}
	return a, nil
}

// FindByEmail はメールアドレスでアカウントを検索する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	a, err := r.findOne(ctx, `lower(email) = lower($1)`, email)
	if err != nil {
		return nil, fmt.Errorf("メールアドレスによるアカウントの検索に失敗しました: %w", err)
	}
	return a, nil
}

// FindByUsername はユーザー名でアカウントを検索する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	a, err := r.findOne(ctx, `lower(username) = lower($1)`, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザー名によるアカウントの検索に失敗しました: %w", err)
	}
	return a, nil
}

// ListByIDs は指定IDのアカウントをユーザー名順で返す。
func (r *PostgresAccountRepo) ListByIDs(ctx context.Context, ids []string) ([]*model.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ANY($1::uuid[]) ORDER BY lower(username)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("アカウント一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("アカウント行の読み取りに失敗しました: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("アカウント一覧の走査に失敗しました: %w", err)
	}
	return accounts, nil
}

// Create はアカウントを作成する。
func (r *PostgresAccountRepo) Create(ctx context.Context, a *model.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, username, email, password_hash, confirmed, confirmed_on, joined_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.Username, a.Email, a.PasswordHash, a.Confirmed, a.ConfirmedOn, a.JoinedAt,
	)
	if err != nil {
		if constraint, ok := uniqueViolationConstraint(err); ok {
			switch constraint {
			case constraintAccountsUsername:
				return model.NewDuplicateUsernameError(a.Username)
			case constraintAccountsEmail:
				return model.NewDuplicateEmailError()
			}
		}
		return fmt.Errorf("アカウントの作成に失敗しました: %w", err)
	}
	return nil
}

// Confirm は未確認のアカウントを確認済みにする。既に確認済みの場合は false を返す。
func (r *PostgresAccountRepo) Confirm(ctx context.Context, id string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET confirmed = true, confirmed_on = $2
		 WHERE id = $1 AND confirmed = false`,
		id, at,
	)
	if err != nil {
		return false, fmt.Errorf("アカウントの確認に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
