package handlers

import (
	"errors"
	"net/http"

	"lunepoker/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type roomCreateRequest struct {
	Name string `json:"name"`
}

type roomJoinRequest struct {
	Code string `json:"code"`
}

type roomUpdateRequest struct {
	Name     string `json:"name"`
	ImageURL string `json:"imageURL"`
}

func (a *App) ListRooms(c *gin.Context) {
	rooms, err := a.Rooms.FetchAll(c.Request.Context())
	if err != nil {
		a.Logger.Error("ルーム一覧の取得に失敗しました", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "バックエンドに接続できません"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// CreateRoom はルームとコードマッピングを作成し、セッションを開始します。
func (a *App) CreateRoom(c *gin.Context) {
	var req roomCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.Logger.Error("Room create request bind error", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ルーム名は必須です"})
		return
	}

	created, err := a.Rooms.Create(c.Request.Context(), req.Name, a.Identity.UID)
	if err != nil {
		var vErr *models.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusConflict, gin.H{"error": vErr.Reason})
			return
		}
		a.Logger.Error("ルーム作成に失敗しました", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ルーム作成に失敗しました"})
		return
	}

	a.StartSession(c.Request.Context())
	c.JSON(http.StatusCreated, gin.H{"room": created})
}

// JoinRoom はコードでルームを検索してセッションを開始します。
func (a *App) JoinRoom(c *gin.Context) {
	var req roomJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.Logger.Error("Room join request bind error", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	joined, err := a.Rooms.Join(c.Request.Context(), req.Code)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "ルームが見つかりません"})
		return
	}
	if err != nil {
		a.Logger.Error("ルーム参加に失敗しました", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "バックエンドに接続できません"})
		return
	}

	a.StartSession(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"room": joined})
}

// LeaveRoom はローカルのポインタを消すだけで、ルームのデータは残ります。
func (a *App) LeaveRoom(c *gin.Context) {
	a.StopSession()
	a.Rooms.Leave()
	c.JSON(http.StatusOK, gin.H{"left": true})
}

// UpdateRoom は現在参加中のルームの情報を書き換えます。
func (a *App) UpdateRoom(c *gin.Context) {
	current, ok := a.Rooms.Current()
	if !ok || current.ID != c.Param("id") {
		c.JSON(http.StatusConflict, gin.H{"error": "参加中のルームのみ編集できます"})
		return
	}
	var req roomUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.Logger.Error("Room update request bind error", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name != "" {
		current.Name = req.Name
	}
	if req.ImageURL != "" {
		current.ImageURL = req.ImageURL
	}

	if err := a.Rooms.Update(c.Request.Context(), current); err != nil {
		a.Logger.Error("ルーム更新に失敗しました", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ルーム更新に失敗しました"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": current})
}

// DeleteRoom はルーム情報とコードマッピングを削除します。
// プレイヤー・試合のデータは孤児として残ります。
func (a *App) DeleteRoom(c *gin.Context) {
	id := c.Param("id")

	target, ok := a.Rooms.Current()
	if !ok || target.ID != id {
		rooms, err := a.Rooms.FetchAll(c.Request.Context())
		if err != nil {
			a.Logger.Error("ルーム一覧の取得に失敗しました", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "バックエンドに接続できません"})
			return
		}
		found := false
		for _, r := range rooms {
			if r.ID == id {
				target = r
				found = true
				break
			}
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "ルームが見つかりません"})
			return
		}
	} else {
		a.StopSession()
	}

	if err := a.Rooms.Delete(c.Request.Context(), target); err != nil {
		a.Logger.Error("ルーム削除に失敗しました", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ルーム削除に失敗しました"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
