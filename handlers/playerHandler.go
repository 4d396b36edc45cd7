package handlers

import (
	"net/http"

	"lunepoker/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// プレイヤーの追加・編集リクエストのボディ
type playerRequest struct {
	Name        string `json:"name"`
	Nickname    string `json:"nickname"`
	Description string `json:"description"`
	Card1       string `json:"card1"`
	Card2       string `json:"card2"`
}

func (a *App) ListPlayers(c *gin.Context) {
	if !a.requireRoom(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"players": a.Players.Snapshot()})
}

func (a *App) CreatePlayer(c *gin.Context) {
	if !a.requireRoom(c) {
		return
	}
	var req playerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.Logger.Error("Player create request bind error", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "名前は必須です"})
		return
	}

	p := models.NewPlayer(req.Name, req.Nickname, req.Description, req.Card1, req.Card2)
	a.Players.Add(c.Request.Context(), p)
	c.JSON(http.StatusCreated, gin.H{"player": p})
}

// UpdatePlayer はID以外の全フィールドを置き換えます。
func (a *App) UpdatePlayer(c *gin.Context) {
	if !a.requireRoom(c) {
		return
	}
	var req playerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.Logger.Error("Player update request bind error", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "名前は必須です"})
		return
	}

	p := models.Player{
		ID:          c.Param("id"),
		Name:        req.Name,
		Nickname:    req.Nickname,
		Description: req.Description,
		Card1:       req.Card1,
		Card2:       req.Card2,
	}
	if !a.Players.Update(c.Request.Context(), p) {
		c.JSON(http.StatusNotFound, gin.H{"error": "プレイヤーが見つかりません"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"player": p})
}

// DeletePlayer はプレイヤーを削除し、試合の参加者・勝者リストからも取り除きます。
func (a *App) DeletePlayer(c *gin.Context) {
	if !a.requireRoom(c) {
		return
	}
	playerID := c.Param("id")
	a.Players.Remove(c.Request.Context(), playerID)

	// カスケード：このプレイヤーを参照している試合を書き換える
	matches := a.Matches.Snapshot()
	changed := false
	for i := range matches {
		if matches[i].RemovePlayer(playerID) {
			changed = true
		}
	}
	if changed {
		a.Matches.Replace(c.Request.Context(), matches)
	}

	c.JSON(http.StatusOK, gin.H{"deleted": playerID})
}
