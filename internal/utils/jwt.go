package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// Tokens are stateless HS256 JWTs: there is no server-side session table and
// no revocation list.  A leaked token stays valid until its exp claim passes.
// This is a documented limitation of the design, not an oversight.

// ErrTokenExpired is returned by DecodeToken when the token's signature is
// valid but its expiry has passed.  Guards translate it into 403.
var ErrTokenExpired = errors.New("token expired")

// ErrTokenInvalid is returned for every other validation failure: bad
// signature, malformed token, unexpected signing method.  Guards translate
// it into 401.
var ErrTokenInvalid = errors.New("token invalid")

// Claims carries the application's token payload: the registered claims
// (sub = the user's Yandex id, exp, iat) plus the internal user id.
// The same claim set is used for access and refresh tokens; only the
// validity window differs.
type Claims struct {
	jwt.RegisteredClaims
	UserID uint64 `json:"user_id"`
}

// NewAccessToken signs a short-lived HS256 JWT for API calls.  subject is
// the user's Yandex id and ttlMin the validity window in minutes.
func NewAccessToken(secret, subject string, userID uint64, ttlMin int) (string, error) {
	return issue(secret, subject, userID, time.Duration(ttlMin)*time.Minute)
}

// NewRefreshToken signs a long-lived HS256 JWT used solely to mint new
// access tokens.  It is delivered to clients only via an HTTP-only cookie.
func NewRefreshToken(secret, subject string, userID uint64, ttlDays int) (string, error) {
	return issue(secret, subject, userID, time.Duration(ttlDays)*24*time.Hour)
}

func issue(secret, subject string, userID uint64, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: userID,
	})
	return t.SignedString([]byte(secret))
}

// DecodeToken verifies the signature and expiry of a token and returns its
// claims.  Expiry is reported as ErrTokenExpired; any other failure
// (including a non-HMAC signing method) as ErrTokenInvalid.
func DecodeToken(secret, token string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !tok.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// IsExpired reports whether a token's expiry claim has passed without
// treating expiry as a failure.  Tokens that do not validate for any other
// reason yield ErrTokenInvalid.
func IsExpired(secret, token string) (bool, error) {
	_, err := DecodeToken(secret, token)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, ErrTokenExpired):
		return true, nil
	default:
		return false, ErrTokenInvalid
	}
}
