package utils

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CronResync は定期的にロード処理を再実行するスケジューラを起動します。
// リモート書き込みの失敗後に自動リトライのキューは無いため、
// この定期再同期が唯一のバックグラウンド修復になります。
func CronResync(resync func(), logger *zap.Logger) *cron.Cron {
	c := cron.New()

	// ルーム参加中のみ意味があるジョブ。resync側でルーム未選択は無視される。
	c.AddFunc("@every 15m", func() {
		logger.Info("定期再同期を開始")
		resync()
	})

	c.Start()
	return c
}
