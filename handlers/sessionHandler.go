package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetSession は匿名デバイスのUIDとトークンを返します。
// クライアントは変更系APIの呼び出しにこのトークンを使います。
func (a *App) GetSession(c *gin.Context) {
	resp := gin.H{
		"uid":   a.Identity.UID,
		"token": a.Identity.Token,
	}
	if current, ok := a.Rooms.Current(); ok {
		resp["room"] = current
	}
	c.JSON(http.StatusOK, resp)
}
