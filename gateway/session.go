package gateway

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ParsePrincipal validates an access token and extracts the principal.
// The platform signs access tokens with HMAC using the project's JWT secret.
func ParsePrincipal(tokenString, jwtSecret string) (Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return Principal{}, fmt.Errorf("gateway: parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Principal{}, fmt.Errorf("gateway: invalid token")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return Principal{}, fmt.Errorf("gateway: invalid sub in token")
	}
	email, _ := claims["email"].(string)

	return Principal{ID: sub, Email: email}, nil
}
