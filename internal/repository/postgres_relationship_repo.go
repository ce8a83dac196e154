package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/bitmeme/internal/model"
)

// PostgresRelationshipRepo はPostgreSQLを使用したフォロー関係リポジトリ。
type PostgresRelationshipRepo struct {
	db *sql.DB
}

// NewPostgresRelationshipRepo はPostgresRelationshipRepoを生成する。
func NewPostgresRelationshipRepo(db *sql.DB) *PostgresRelationshipRepo {
	return &PostgresRelationshipRepo{db: db}
}

// Create はフォロー関係を作成する。
func (r *PostgresRelationshipRepo) Create(ctx context.Context, rel *model.Relationship) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO relationships (from_id, to_id, created_at) VALUES ($1, $2, $3)`,
		rel.FromID, rel.ToID, rel.CreatedAt,
	)
	if err != nil {
		if constraint, ok := uniqueViolationConstraint(err); ok && constraint == constraintRelationshipsPK {
			return model.NewAlreadyFollowingError()
		}
		return fmt.Errorf("フォロー関係の作成に失敗しました: %w", err)
	}
	return nil
}

// Delete はフォロー関係を削除する。削除した行がない場合は false を返す。
func (r *PostgresRelationshipRepo) Delete(ctx context.Context, fromID, toID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM relationships WHERE from_id = $1 AND to_id = $2`,
		fromID, toID,
	)
	if err != nil {
		return false, fmt.Errorf("フォロー関係の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// Exists は fromID が toID をフォローしているかを返す。
func (r *PostgresRelationshipRepo) Exists(ctx context.Context, fromID, toID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM relationships WHERE from_id = $1 AND to_id = $2)`,
		fromID, toID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("フォロー関係の確認に失敗しました: %w", err)
	}
	return exists, nil
}

// ListFollowing は accountID がフォローしているアカウントIDを返す。
func (r *PostgresRelationshipRepo) ListFollowing(ctx context.Context, accountID string) ([]string, error) {
	return r.listIDs(ctx,
		`SELECT to_id FROM relationships WHERE from_id = $1 ORDER BY created_at ASC`,
		accountID,
	)
}

// ListFollowers は accountID をフォローしているアカウントIDを返す。
func (r *PostgresRelationshipRepo) ListFollowers(ctx context.Context, accountID string) ([]string, error) {
	return r.listIDs(ctx,
		`SELECT from_id FROM relationships WHERE to_id = $1 ORDER BY created_at ASC`,
		accountID,
	)
}

func (r *PostgresRelationshipRepo) listIDs(ctx context.Context, query, accountID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("フォロー関係一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("フォロー関係行の読み取りに失敗しました: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("フォロー関係一覧の走査に失敗しました: %w", err)
	}
	return ids, nil
}

// Counts はフォロー数とフォロワー数を返す。
func (r *PostgresRelationshipRepo) Counts(ctx context.Context, accountID string) (int, int, error) {
	var following, followers int
	err := r.db.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM relationships WHERE from_id = $1),
			(SELECT COUNT(*) FROM relationships WHERE to_id = $1)`,
		accountID,
	).Scan(&following, &followers)
	if err != nil {
		return 0, 0, fmt.Errorf("フォロー数の取得に失敗しました: %w", err)
	}
	return following, followers, nil
}

// compile-time interface check
var _ RelationshipRepository = (*PostgresRelationshipRepo)(nil)
