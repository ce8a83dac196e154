// Package token はメールアドレス確認用の署名付きトークンを発行・検証する。
package token

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "bitmeme"
	// activationPurpose は確認トークンを他用途のトークンと区別するための値。
	activationPurpose = "activation"
)

var (
	// ErrInvalid は署名・形式・用途が不正なトークンを表す。
	ErrInvalid = errors.New("token is invalid")
	// ErrExpired は有効期限を過ぎたトークンを表す。
	ErrExpired = errors.New("token is expired")
)

// Claims は確認トークンのペイロード。Subject に識別子（メールアドレス）を格納する。
type Claims struct {
	Purpose string `json:"purpose"`
	jwtlib.RegisteredClaims
}

// Issuer はHS256で署名された確認トークンを扱う。
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// NewIssuer はIssuerを生成する。
func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret), now: time.Now}
}

// Issue は identity を埋め込んだトークンを発行する。
func (i *Issuer) Issue(identity string) (string, error) {
	claims := Claims{
		Purpose: activationPurpose,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:   issuer,
			Subject:  identity,
			IssuedAt: jwtlib.NewNumericDate(i.now()),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、発行から maxAge 以内であれば埋め込まれた identity を返す。
func (i *Issuer) Verify(token string, maxAge time.Duration) (string, error) {
	parsed, err := jwtlib.ParseWithClaims(token, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}),
		jwtlib.WithIssuer(issuer),
		jwtlib.WithTimeFunc(i.now),
	)
	if err != nil {
		return "", ErrInvalid
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Purpose != activationPurpose || claims.Subject == "" || claims.IssuedAt == nil {
		return "", ErrInvalid
	}
	if i.now().Sub(claims.IssuedAt.Time) > maxAge {
		return "", ErrExpired
	}
	return claims.Subject, nil
}
