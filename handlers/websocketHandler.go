package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const pingInterval = 30 * time.Second

// ws経由でクライアントへ送るメッセージ
type wsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ServeWS は同期エンジンの状態が変わるたびに全量スナップショットを
// プッシュするWebSocket接続です。描画レイヤはこれを購読して画面を更新します。
func (a *App) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.Logger.Error("WebSocketのアップグレードに失敗しました", zap.Error(err))
		return
	}
	defer conn.Close()

	playersCh, unlistenPlayers := a.Players.Listen()
	defer unlistenPlayers()
	matchesCh, unlistenMatches := a.Matches.Listen()
	defer unlistenMatches()

	// 接続直後に現在のスナップショットを送る
	if err := conn.WriteJSON(wsMessage{Type: "players", Data: a.Players.Snapshot()}); err != nil {
		return
	}
	if err := conn.WriteJSON(wsMessage{Type: "matches", Data: a.Matches.Snapshot()}); err != nil {
		return
	}

	// 受信は切断検知のためだけに読む
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case snapshot, ok := <-playersCh:
			if !ok {
				return
			}
			if err := conn.WriteJSON(wsMessage{Type: "players", Data: snapshot}); err != nil {
				return
			}
		case snapshot, ok := <-matchesCh:
			if !ok {
				return
			}
			if err := conn.WriteJSON(wsMessage{Type: "matches", Data: snapshot}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
