package model

import "time"

// Post は画像付きの投稿を表す。
type Post struct {
	ID        string
	OwnerID   string
	Content   string
	ImageRef  string
	CreatedAt time.Time
}

// Comment は投稿へのコメントを表す。
type Comment struct {
	ID        string
	OwnerID   string
	PostID    string
	Content   string
	CreatedAt time.Time
}

// Relationship はフォロー関係（From が To をフォローする）を表す。
type Relationship struct {
	FromID    string
	ToID      string
	CreatedAt time.Time
}
