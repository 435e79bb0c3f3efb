package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"momo-gateway/internal/utils"
)

const ContextKeySubject = "subject"

var (
	errMissingBearer = errors.New("bearer token required")
	errInvalidToken  = errors.New("invalid token")
)

// AuthRequired validates an HS256 bearer token signed with secret and stores
// its subject in the context. An empty secret disables the check.
func AuthRequired(secret string) gin.HandlerFunc {
	if secret == "" {
		return func(c *gin.Context) { c.Next() }
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	key := []byte(secret)

	return func(c *gin.Context) {
		subject, err := authenticate(parser, key, c.GetHeader("Authorization"))
		if err != nil {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
			return
		}

		c.Set(ContextKeySubject, subject)
		c.Next()
	}
}

func authenticate(parser *jwt.Parser, key []byte, header string) (string, error) {
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		return "", errMissingBearer
	}

	claims := &jwt.RegisteredClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}

	return claims.Subject, nil
}
