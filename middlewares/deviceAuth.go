package middlewares

import (
	"net/http"
	"strings"

	"lunepoker/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DeviceAuth は変更系APIに適用するミドルウェアです。
// GET /session で取得したデバイストークンをAuthorizationヘッダで検証します。
func DeviceAuth(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "トークンがありません"})
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		uid, err := auth.ParseToken(tokenString)
		if err != nil {
			logger.Warn("Token validation error", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "認証失敗"})
			return
		}

		c.Set("uid", uid)
		c.Next()
	}
}
