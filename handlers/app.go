// Package handlers はUIの代わりに変更インテントを受け付けるHTTPサーフェスです。
// 画面描画そのものはスコープ外で、このAPIは同期エンジンと統計エンジンの
// 呼び出し口だけを提供します。
package handlers

import (
	"context"
	"net/http"
	"sync"

	"lunepoker/auth"
	"lunepoker/models"
	"lunepoker/room"
	"lunepoker/syncer"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// App はハンドラが使う依存をまとめます。全てmainで明示的に構築して注入します。
type App struct {
	Players  *syncer.Engine[models.Player]
	Matches  *syncer.Engine[models.Match]
	Rooms    *room.Manager
	Identity auth.Identity
	Logger   *zap.Logger

	// 購読のライフサイクルに使う長命のコンテキスト
	BaseCtx context.Context

	// エンジンのLoadは同時実行を許さないので、ルーム遷移と定期再同期を直列化する
	loadMu sync.Mutex
}

// StartSession はルーム参加後の読み込みと購読を開始します。
func (a *App) StartSession(ctx context.Context) {
	a.loadMu.Lock()
	if err := a.Players.Load(ctx); err != nil {
		a.Logger.Warn("プレイヤーの初期ロードに失敗しました", zap.Error(err))
	}
	if err := a.Matches.Load(ctx); err != nil {
		a.Logger.Warn("試合の初期ロードに失敗しました", zap.Error(err))
	}
	a.loadMu.Unlock()
	if err := a.Players.SubscribeRemote(a.BaseCtx); err != nil {
		a.Logger.Warn("プレイヤーの購読開始に失敗しました", zap.Error(err))
	}
	if err := a.Matches.SubscribeRemote(a.BaseCtx); err != nil {
		a.Logger.Warn("試合の購読開始に失敗しました", zap.Error(err))
	}
}

// StopSession はルームを離れるときに購読を解除します。
func (a *App) StopSession() {
	a.Players.Detach()
	a.Matches.Detach()
}

// Resync は定期再同期ジョブから呼ばれます。ルーム未選択なら何もしません。
func (a *App) Resync() {
	if _, ok := a.Rooms.RoomID(); !ok {
		return
	}
	a.loadMu.Lock()
	defer a.loadMu.Unlock()
	if err := a.Players.Load(a.BaseCtx); err != nil {
		a.Logger.Warn("プレイヤーの再同期に失敗しました", zap.Error(err))
	}
	if err := a.Matches.Load(a.BaseCtx); err != nil {
		a.Logger.Warn("試合の再同期に失敗しました", zap.Error(err))
	}
}

// requireRoom はルーム未選択の操作を409で弾きます。
func (a *App) requireRoom(c *gin.Context) bool {
	if _, ok := a.Rooms.RoomID(); !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "ルームが選択されていません"})
		return false
	}
	return true
}
