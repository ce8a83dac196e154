package account

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/bitmeme/internal/model"
)

const (
	usernameMaxLength = 30
	emailMaxLength    = 254
	passwordMinLength = 8
	// passwordMaxBytes は bcrypt が扱える入力長の上限。
	passwordMaxBytes = 72
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// ValidateUsername はユーザー名の形式を検証する。
func ValidateUsername(username string) error {
	if username == "" {
		return model.NewValidationError("username", "必須です")
	}
	if utf8.RuneCountInString(username) > usernameMaxLength {
		return model.NewValidationError("username", "30文字以内で指定してください")
	}
	if !usernamePattern.MatchString(username) {
		return model.NewValidationError("username", "英数字と _ . - のみ使用できます")
	}
	return nil
}

// NormalizeEmail はメールアドレスを検証し、前後の空白を除いた小文字表記を返す。
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", model.NewValidationError("email", "必須です")
	}
	if len(email) > emailMaxLength {
		return "", model.NewValidationError("email", "長すぎます")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", model.NewValidationError("email", "メールアドレスの形式ではありません")
	}
	return email, nil
}

// ValidatePassword はパスワードの長さを検証する。
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < passwordMinLength {
		return model.NewValidationError("password", "8文字以上で指定してください")
	}
	if len(password) > passwordMaxBytes {
		return model.NewValidationError("password", "長すぎます")
	}
	return nil
}
