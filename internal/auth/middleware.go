package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const contextKey = "auth.claims"

// Claims is the signer profile carried by the identity provider's JWT.
type Claims struct {
	UserID       uuid.UUID
	TaxID        string
	CompanyTaxID string
	FirstName    string
	LastName     string
	MiddleName   string
}

type tokenClaims struct {
	TaxID        string `json:"tax_id"`
	CompanyTaxID string `json:"company_tax_id,omitempty"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	MiddleName   string `json:"middle_name,omitempty"`
	jwt.RegisteredClaims
}

// Middleware validates the Bearer token and stores the signer profile in the
// request context.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		var claims tokenClaims
		token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), &claims,
			func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid subject claim"})
			return
		}
		if claims.TaxID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing tax id claim"})
			return
		}

		c.Set(contextKey, Claims{
			UserID:       userID,
			TaxID:        claims.TaxID,
			CompanyTaxID: claims.CompanyTaxID,
			FirstName:    claims.FirstName,
			LastName:     claims.LastName,
			MiddleName:   claims.MiddleName,
		})
		c.Next()
	}
}

// ClaimsFromContext returns the signer profile stored by Middleware.
func ClaimsFromContext(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}
