package handlers

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"lunepoker/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 試合の追加・編集リクエストのボディ。dateはエポック秒です。
type matchRequest struct {
	Date         float64              `json:"date"`
	Participants []models.Participant `json:"participants"`
	Winners      []models.Winner      `json:"winners"`
}

func (a *App) ListMatches(c *gin.Context) {
	if !a.requireRoom(c) {
		return
	}
	matches := a.Matches.Snapshot()
	// 新しい試合を先頭に
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Date.After(matches[j].Date)
	})
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

// CreateMatch は検証を通った試合だけを同期エンジンに渡します。
// TotalPrizeはこの時点の参加費合計で確定します。
func (a *App) CreateMatch(c *gin.Context) {
	if !a.requireRoom(c) {
		return
	}
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.Logger.Error("Match create request bind error", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m := models.NewMatch(time.Unix(int64(req.Date), 0).UTC(), req.Participants, req.Winners)
	if err := m.Validate(); err != nil {
		var vErr *models.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Reason})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a.Matches.Add(c.Request.Context(), m)
	c.JSON(http.StatusCreated, gin.H{"match": m})
}

// UpdateMatch はエンティティを丸ごと置き換えます。
func (a *App) UpdateMatch(c *gin.Context) {
	if !a.requireRoom(c) {
		return
	}
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.Logger.Error("Match update request bind error", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m := models.NewMatch(time.Unix(int64(req.Date), 0).UTC(), req.Participants, req.Winners)
	m.ID = c.Param("id")
	if err := m.Validate(); err != nil {
		var vErr *models.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Reason})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !a.Matches.Update(c.Request.Context(), m) {
		c.JSON(http.StatusNotFound, gin.H{"error": "試合が見つかりません"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"match": m})
}

func (a *App) DeleteMatch(c *gin.Context) {
	if !a.requireRoom(c) {
		return
	}
	id := c.Param("id")
	a.Matches.Remove(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
