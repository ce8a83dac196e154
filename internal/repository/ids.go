package repository

import "github.com/google/uuid"

// validID は id が posts・comments の主キーとして解釈できるUUIDかを返す。
// 不正な値をそのまま渡すと 22P02 で問い合わせ自体が失敗する。
func validID(id string) bool {
	return uuid.Validate(id) == nil
}
