// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, social, content, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeDuplicateUsername     = "DUPLICATE_USERNAME"
	ErrCodeDuplicateEmail        = "DUPLICATE_EMAIL"
	ErrCodeAccountNotFound       = "ACCOUNT_NOT_FOUND"
	ErrCodePostNotFound          = "POST_NOT_FOUND"
	ErrCodeCommentNotFound       = "COMMENT_NOT_FOUND"
	ErrCodeBadPassword           = "BAD_PASSWORD"
	ErrCodeUnconfirmed           = "UNCONFIRMED"
	ErrCodeAlreadyFollowing      = "ALREADY_FOLLOWING"
	ErrCodeNotFollowing          = "NOT_FOLLOWING"
	ErrCodeSelfFollow            = "SELF_FOLLOW"
	ErrCodeForbidden             = "FORBIDDEN"
	ErrCodeUnauthenticated       = "UNAUTHENTICATED"
	ErrCodeRejectedFileType      = "REJECTED_FILE_TYPE"
	ErrCodeInvalidOrExpiredToken = "INVALID_OR_EXPIRED_TOKEN"
	ErrCodeValidationFailed      = "VALIDATION_FAILED"
)

// HasCode はエラーチェーン中に指定コードの APIError が含まれるかを返す。
func HasCode(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// NewDuplicateUsernameError はユーザー名重複エラーを生成する。
func NewDuplicateUsernameError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUsername,
		Message:  fmt.Sprintf("このユーザー名は既に使用されています: %s", username),
		Category: "auth",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "ログインするか、別のメールアドレスで登録してください。",
	}
}

// NewAccountNotFoundError はアカウント未検出エラーを生成する。
func NewAccountNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountNotFound,
		Message:  "アカウントが見つかりません。",
		Category: "auth",
		Action:   "ユーザー名またはメールアドレスを確認してください。",
	}
}

// NewPostNotFoundError は投稿未検出エラーを生成する。
func NewPostNotFoundError(postID string) *APIError {
	return &APIError{
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("指定された投稿が見つかりません: %s", postID),
		Category: "content",
		Action:   "投稿IDを確認してください。",
	}
}

// NewCommentNotFoundError はコメント未検出エラーを生成する。
func NewCommentNotFoundError(commentID string) *APIError {
	return &APIError{
		Code:     ErrCodeCommentNotFound,
		Message:  fmt.Sprintf("指定されたコメントが見つかりません: %s", commentID),
		Category: "content",
		Action:   "コメントIDを確認してください。",
	}
}

// NewBadPasswordError はパスワード不一致エラーを生成する。
func NewBadPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeBadPassword,
		Message:  "パスワードが正しくありません。",
		Category: "auth",
		Action:   "パスワードを確認して再度お試しください。",
	}
}

// NewUnconfirmedError は未確認アカウントでのログインエラーを生成する。
func NewUnconfirmedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnconfirmed,
		Message:  "アカウントのメールアドレスが確認されていません。",
		Category: "auth",
		Action:   "登録時に送信された確認メールのリンクを開いてください。",
	}
}

// NewAlreadyFollowingError は既にフォロー済みの場合のエラーを生成する。
func NewAlreadyFollowingError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyFollowing,
		Message:  "既にこのユーザーをフォローしています。",
		Category: "social",
		Action:   "フォロー一覧を確認してください。",
	}
}

// NewNotFollowingError はフォローしていないユーザーのフォロー解除エラーを生成する。
func NewNotFollowingError() *APIError {
	return &APIError{
		Code:     ErrCodeNotFollowing,
		Message:  "このユーザーをフォローしていません。",
		Category: "social",
		Action:   "フォロー一覧を確認してください。",
	}
}

// NewSelfFollowError は自分自身をフォローしようとした場合のエラーを生成する。
func NewSelfFollowError() *APIError {
	return &APIError{
		Code:     ErrCodeSelfFollow,
		Message:  "自分自身をフォローすることはできません。",
		Category: "social",
		Action:   "他のユーザーを指定してください。",
	}
}

// NewForbiddenError は操作権限がない場合のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "content",
		Action:   "自分の投稿またはコメントのみ削除できます。",
	}
}

// NewUnauthenticatedError は未認証エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewRejectedFileTypeError は許可されていないファイル形式のエラーを生成する。
func NewRejectedFileTypeError(hint string) *APIError {
	return &APIError{
		Code:     ErrCodeRejectedFileType,
		Message:  fmt.Sprintf("許可されていないファイル形式です: %s", hint),
		Category: "content",
		Action:   "png、jpg、jpeg、gif のいずれかの画像をアップロードしてください。",
	}
}

// NewInvalidOrExpiredTokenError は確認トークンが無効または期限切れの場合のエラーを生成する。
func NewInvalidOrExpiredTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidOrExpiredToken,
		Message:  "確認リンクが無効か、有効期限が切れています。",
		Category: "auth",
		Action:   "確認メールの再送信を依頼してください。",
	}
}

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("%s が不正です: %s", field, reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}
