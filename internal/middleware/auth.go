package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var jwtSecret = []byte(os.Getenv("JWT_SECRET"))

var ErrInvalidToken = errors.New("invalid token")

// IssueToken signs a token for the given user. Handlers use it at
// register/login; tests use it to mint credentials.
func IssueToken(userID int, username string, expiresAt int64) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  userID,
		"username": username,
		"exp":      expiresAt,
	})
	return token.SignedString(jwtSecret)
}

// ParseToken verifies an opaque credential and returns the user it belongs
// to. This is the single verification path for both the HTTP middleware and
// the websocket identify handshake.
func ParseToken(tokenString string) (int, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}

	id, ok := claims["user_id"].(float64)
	if !ok {
		return 0, ErrInvalidToken
	}

	return int(id), nil
}

// AuthMiddleware rejects requests without a valid bearer token and stores the
// authenticated user id on the context as "user_id".
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		userID, err := ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

// OptionalUserID resolves the viewer on public read routes. A missing or bad
// token is not an error; it just means an anonymous viewer.
func OptionalUserID(c *gin.Context) *int {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil
	}
	userID, err := ParseToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return nil
	}
	return &userID
}
