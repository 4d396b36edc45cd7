package handlers

import (
	"net/http"
	"time"

	"lunepoker/stats"

	"github.com/gin-gonic/gin"
)

// GetStatistics は現在のスナップショットから統計を計算して返します。
// 計算は純粋関数なのでリクエストごとに呼んでも副作用はありません。
func (a *App) GetStatistics(c *gin.Context) {
	if !a.requireRoom(c) {
		return
	}

	period := stats.ParsePeriod(c.Query("period"))
	key := stats.ParseKey(c.Query("stat"))
	order := stats.ParseOrder(c.Query("order"))

	players := a.Players.Snapshot()
	matches := a.Matches.Snapshot()
	now := time.Now()

	c.JSON(http.StatusOK, gin.H{
		"totalPrizePool": stats.TotalPrizePool(matches, period, now),
		"stats":          stats.ComputeStatistics(players, matches, period, key, order, now),
	})
}
