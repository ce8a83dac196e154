package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/bitmeme/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

func scanPost(row rowScanner) (*model.Post, error) {
	p := &model.Post{}
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Content, &p.ImageRef, &p.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
// UUIDとして解釈できないIDは問い合わせずに未検出とする。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	if !validID(id) {
		return nil, nil
	}
	p, err := scanPost(r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, content, image_ref, created_at FROM posts WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	return p, nil
}

// Create は投稿を作成する。
func (r *PostgresPostRepo) Create(ctx context.Context, p *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, owner_id, content, image_ref, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.OwnerID, p.Content, p.ImageRef, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("投稿の作成に失敗しました: %w", err)
	}
	return nil
}

// Delete は投稿を削除する。コメントはCASCADE削除される。
func (r *PostgresPostRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("投稿の削除に失敗しました: %w", err)
	}
	return nil
}

// ListByOwner は指定アカウントの投稿を新しい順に最大limit件返す。
func (r *PostgresPostRepo) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, content, image_ref, created_at
		 FROM posts
		 WHERE owner_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var posts []*model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("投稿行の読み取りに失敗しました: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("投稿一覧の走査に失敗しました: %w", err)
	}
	return posts, nil
}

// ListByOwners は各アカウントの最新投稿を最大 perOwner 件ずつ取得する。
// LATERAL JOIN で (owner_id, created_at) インデックスをアカウントごとに走査するため、
// 投稿テーブル全体は読まない。結果はアカウントごとのストリームにまとめて返す。
func (r *PostgresPostRepo) ListByOwners(ctx context.Context, ownerIDs []string, perOwner int) ([][]*model.Post, error) {
	if len(ownerIDs) == 0 || perOwner <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.owner_id, p.content, p.image_ref, p.created_at
		 FROM unnest($1::uuid[]) AS a(owner_id)
		 CROSS JOIN LATERAL (
		     SELECT id, owner_id, content, image_ref, created_at
		     FROM posts
		     WHERE posts.owner_id = a.owner_id
		     ORDER BY created_at DESC, id DESC
		     LIMIT $2
		 ) p
		 ORDER BY p.owner_id, p.created_at DESC, p.id DESC`,
		pq.Array(ownerIDs), perOwner,
	)
	if err != nil {
		return nil, fmt.Errorf("投稿ストリームの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var streams [][]*model.Post
	var current []*model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("投稿行の読み取りに失敗しました: %w", err)
		}
		if len(current) > 0 && current[0].OwnerID != p.OwnerID {
			streams = append(streams, current)
			current = nil
		}
		current = append(current, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("投稿ストリームの走査に失敗しました: %w", err)
	}
	if len(current) > 0 {
		streams = append(streams, current)
	}
	return streams, nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
