package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/matchd/config"
	"go.uber.org/zap"
)

const AccountIDKey = "account_id"

// AccountCheck reports whether the account behind a valid token may still
// call the API.
type AccountCheck func(ctx context.Context, accountID int64) (bool, error)

// Auth validates the caller's JWT and stores its account id in the context.
// The token comes from the Authorization header or, for EventSource clients
// that cannot set headers, the token query parameter. A nil check accepts
// every validly signed token.
func Auth(sec config.SecurityConfig, check AccountCheck, log *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenStr := bearerToken(ctx)
		if tokenStr == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil || claims.AccountID <= 0 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if check != nil {
			checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
			defer cancel()
			ok, err := check(checkCtx, claims.AccountID)
			if err != nil {
				log.Warn("account check failed",
					zap.Int64("account_id", claims.AccountID),
					zap.String("trace_id", GetTraceID(ctx)),
					zap.Error(err))
				ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
				return
			}
			if !ok {
				ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account unavailable"})
				return
			}
		}

		ctx.Set(AccountIDKey, claims.AccountID)
		ctx.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if !strings.HasPrefix(header, "Bearer ") {
			return ""
		}
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

// GetAccountID retrieves the authenticated account ID from the Gin context.
func GetAccountID(c *gin.Context) int64 {
	if v, exists := c.Get(AccountIDKey); exists {
		return v.(int64)
	}
	return 0
}
