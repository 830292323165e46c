package middleware

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// jwtClaims are the claims carried by tokens issued by the user service.
type jwtClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWT accepts HMAC-signed tokens carrying a subject and a role claim.
// Expiry is enforced when present. An empty secret rejects every token.
func JWT(secret string) TokenValidator {
	key := []byte(secret)
	return func(token string) (*Claims, error) {
		if secret == "" {
			return nil, ErrInvalidToken
		}

		var claims jwtClaims
		parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return key, nil
		})
		if err != nil || !parsed.Valid {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		if claims.Subject == "" {
			return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
		}
		return &Claims{Subject: claims.Subject, Role: claims.Role}, nil
	}
}

// AnyOf tries each validator in turn and returns the first accepted claims.
func AnyOf(validators ...TokenValidator) TokenValidator {
	return func(token string) (*Claims, error) {
		for _, v := range validators {
			if claims, err := v(token); err == nil {
				return claims, nil
			}
		}
		return nil, ErrInvalidToken
	}
}
