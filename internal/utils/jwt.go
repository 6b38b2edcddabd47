package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrNoExpiry = errors.New("token has no usable expiry claim")

// AccessClaims are the claims embedded in issued access tokens.
type AccessClaims struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateAccessToken creates a signed JWT for the provided user.
func GenerateAccessToken(secret string, userID uuid.UUID, tenantID, role, email string, ttl time.Duration) (string, error) {
	claims := &AccessClaims{
		UserID:   userID.String(),
		TenantID: tenantID,
		Role:     role,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseAccessToken validates the token and returns its claims.
func ParseAccessToken(secret, tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AccessClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrTokenInvalidClaims
}

// DecodeExpiry extracts the numeric "exp" claim from a JWT without verifying
// the signature. It is used for scheduling renewal of tokens issued by a
// remote party whose signing key we do not hold. Any malformed input yields
// ErrNoExpiry so callers can treat the expiration as unknown.
func DecodeExpiry(tokenString string) (time.Time, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return time.Time{}, ErrNoExpiry
	}

	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return time.Time{}, ErrNoExpiry
	}

	var claims struct {
		Exp float64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return time.Time{}, ErrNoExpiry
	}

	if claims.Exp <= 0 {
		return time.Time{}, ErrNoExpiry
	}

	return time.UnixMilli(int64(claims.Exp * 1000)), nil
}
