package repository

import (
	"errors"

	"github.com/lib/pq"
)

// uniqueViolation は PostgreSQL の unique_violation (23505)。
const uniqueViolation = "23505"

// 一意制約（インデックス）名。マイグレーションと一致させること。
const (
	constraintAccountsUsername = "accounts_username_lower_key"
	constraintAccountsEmail    = "accounts_email_lower_key"
	constraintRelationshipsPK  = "relationships_pkey"
)

// uniqueViolationConstraint は err が一意制約違反であれば違反した制約名を返す。
func uniqueViolationConstraint(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}
