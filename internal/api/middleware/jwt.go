package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/yoockh/techfinder/internal/utils"
)

// Context keys set by JWTAuth.
const (
	IdentityKey = "identity"
	UserTypeKey = "user_type"
)

type apiError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

type JWTOptions struct {
	Secret   string
	Issuer   string // optional
	Audience string // optional
}

type identityClaims struct {
	jwt.RegisteredClaims
	UserType string `json:"userType"` // "techs" | "recruiter", optional
}

// JWTAuth accepts HS256 tokens minted by the upstream identity provider. The
// subject is the identity that owns the caller's profile.
func JWTAuth(opts JWTOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.Secret == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, apiError{
				Code:    utils.CodeInternal,
				Message: "JWT_SECRET is not set",
			})
			return
		}

		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
				Code:    utils.CodeUnauthorized,
				Message: "missing bearer token",
			})
			return
		}

		parserOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
		if opts.Issuer != "" {
			parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
		}
		if opts.Audience != "" {
			parserOpts = append(parserOpts, jwt.WithAudience(opts.Audience))
		}

		claims := &identityClaims{}
		tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			return []byte(opts.Secret), nil
		}, parserOpts...)

		if err != nil || tok == nil || !tok.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
				Code:    utils.CodeUnauthorized,
				Message: "invalid token",
			})
			return
		}

		if claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
				Code:    utils.CodeUnauthorized,
				Message: "missing subject",
			})
			return
		}

		c.Set(IdentityKey, claims.Subject)
		c.Set(UserTypeKey, claims.UserType)
		c.Next()
	}
}

// bearerToken reads the Authorization header, falling back to the
// access_token query parameter that browsers use for WebSocket upgrades.
func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if c.GetHeader("Upgrade") != "" {
		return strings.TrimSpace(c.Query("access_token"))
	}
	return ""
}
