package middlewares

import (
	"net/http"
	"strings"
	"time"

	"crewclock.app/crewclock/security"
	"crewclock.app/crewclock/web/common"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func parseJwt(tokenStr string, jwtSecret []byte) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		// Ensure the signing method is HMAC (or switch to RSA/ECDSA)
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return jwtSecret, nil
	})
	return token, err
}

// Authentication checks for a valid Bearer token and publishes the identity
// claims into the request context.
func Authentication(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ""

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			// Try to get from cookie
			cookie, err := c.Cookie("crewclock.ApplicationCookie")
			if err != nil {
				// Cookie not found either
				c.AbortWithStatus(http.StatusUnauthorized)
				return
			}

			tokenStr = cookie
		} else {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				c.AbortWithStatus(http.StatusUnauthorized)
				return
			}

			tokenStr = parts[1]
		}

		// Parse and validate JWT
		token, err := parseJwt(tokenStr, jwtSecret)

		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("invalid or expired token"))
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if exp, ok := claims["exp"].(float64); ok && int64(exp) < time.Now().Unix() {
				c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("token expired"))
				return
			}

			// Pass claims into context
			c.Set("claims", claims)
		}

		c.Next()
	}
}

func claims(c *gin.Context) jwt.MapClaims {
	value, ok := c.Get("claims")
	if !ok {
		return nil
	}
	mapClaims, _ := value.(jwt.MapClaims)
	return mapClaims
}

// WorkerID extracts the authenticated worker id, 0 when absent.
func WorkerID(c *gin.Context) int32 {
	if id, ok := claims(c)["workerId"].(float64); ok {
		return int32(id)
	}
	return 0
}

// Company extracts the company claim.
func Company(c *gin.Context) string {
	company, _ := claims(c)["company"].(string)
	return company
}

// Role extracts the role claim.
func Role(c *gin.Context) string {
	role, _ := claims(c)["role"].(string)
	return role
}

// RequireRole aborts with 403 unless the caller holds one of the roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actual := Role(c)
		for _, role := range roles {
			if actual == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, common.NewErrorResponse("insufficient role"))
	}
}

// IsPrivileged reports whether the caller may act on other workers' entries.
func IsPrivileged(c *gin.Context) bool {
	switch Role(c) {
	case security.RoleAdmin, security.RoleManager, security.RoleService:
		return true
	}
	return false
}
