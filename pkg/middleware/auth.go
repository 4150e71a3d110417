package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/safarides/safar-backend/pkg/common"
)

const (
	ctxUserIDKey    = "user_id"
	ctxUserPhoneKey = "user_phone"
	ctxAdminKey     = "is_admin"
)

// Claims are the JWT claims carried by a bearer credential.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Phone  string    `json:"phone"`
	Admin  bool      `json:"admin"`
	jwt.RegisteredClaims
}

// Auth validates the bearer token and stores the caller identity in the
// request context. The token is also accepted via the `token` query parameter
// for websocket handshakes, where headers are awkward for browser clients.
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		if header := c.GetHeader("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				common.ErrorResponse(c, http.StatusUnauthorized, "invalid authorization header format")
				c.Abort()
				return
			}
			tokenString = parts[1]
		} else if t := c.Query("token"); t != "" {
			tokenString = t
		} else {
			common.ErrorResponse(c, http.StatusUnauthorized, "authorization required")
			c.Abort()
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			common.ErrorResponse(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ctxUserIDKey, claims.UserID)
		c.Set(ctxUserPhoneKey, claims.Phone)
		c.Set(ctxAdminKey, claims.Admin)

		c.Next()
	}
}

// RequireAdmin rejects callers whose token lacks the admin flag.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		isAdmin, exists := c.Get(ctxAdminKey)
		if !exists || !isAdmin.(bool) {
			common.ErrorResponse(c, http.StatusForbidden, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID extracts the authenticated user id from the request context.
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	v, exists := c.Get(ctxUserIDKey)
	if !exists {
		return uuid.Nil, common.ErrUnauthorized
	}
	return v.(uuid.UUID), nil
}

// GetUserPhone extracts the authenticated user's phone from the context.
func GetUserPhone(c *gin.Context) (string, error) {
	v, exists := c.Get(ctxUserPhoneKey)
	if !exists {
		return "", common.ErrUnauthorized
	}
	return v.(string), nil
}

// IsAdmin reports whether the caller authenticated as an admin.
func IsAdmin(c *gin.Context) bool {
	v, exists := c.Get(ctxAdminKey)
	return exists && v.(bool)
}
