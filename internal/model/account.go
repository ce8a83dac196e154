// Package model はドメインモデルを定義する。
package model

import "time"

// Account はサービス利用者のアカウントを表す。
// Confirmed が false の間はログインできない。
type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Confirmed    bool
	ConfirmedOn  *time.Time
	JoinedAt     time.Time
}

// Session はアカウントのログインセッションを表す。
type Session struct {
	ID        string
	AccountID string
	ExpiresAt time.Time
	CreatedAt time.Time
}
