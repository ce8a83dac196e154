package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

// コメントは古い順で取得されること
func TestPostgresCommentRepo_ListByPost_Ascending(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()
	repo := NewPostgresCommentRepo(db)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at ASC, id ASC")).
		WithArgs("post-1", 100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "post_id", "content", "created_at"}).
			AddRow("c1", "u1", "post-1", "first", base).
			AddRow("c2", "u2", "post-1", "second", base.Add(time.Minute)))

	comments, err := repo.ListByPost(context.Background(), "post-1", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(comments) != 2 || comments[0].ID != "c1" {
		t.Errorf("unexpected comments: %+v", comments)
	}
}

// UUIDでないIDはクエリを発行せずに未検出となること
func TestPostgresCommentRepo_FindByID_MalformedID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()
	repo := NewPostgresCommentRepo(db)

	c, err := repo.FindByID(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != nil {
		t.Fatalf("expected nil, got %+v", c)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no query expected: %v", err)
	}
}
