package main

import (
	"context"

	"go.uber.org/zap"

	"lunepoker/auth"      //匿名デバイスアイデンティティ
	"lunepoker/cache"     //端末ローカルのキャッシュ
	"lunepoker/database"  //Redisとローカルキャッシュの初期化
	"lunepoker/handlers"  //変更インテントを受け付けるHTTPサーフェス
	"lunepoker/middlewares"
	"lunepoker/models"
	"lunepoker/remote"   //共有バックエンドのアダプタ
	"lunepoker/room"     //アクティブなルームの管理
	"lunepoker/syncer"   //同期エンジン
	"lunepoker/utils"    //ロガーの初期化と定期再同期ジョブ

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

func main() {
	var logger *zap.Logger
	var err error
	logger, err = utils.InitLogger() // ロガーの初期化
	if err != nil {
		panic(err) // 失敗した場合はプログラム停止
	}
	defer logger.Sync() // ロガーのクリーンアップ

	config, err := database.LoadConfig("config.json")
	if err != nil {
		// 設定ファイルが無くてもデフォルト値で動かせる
		logger.Warn("設定ファイルの読み込みに失敗しました。デフォルト値を使います", zap.Error(err))
		config = models.Config{}
	}

	// 非同期でRedisとローカルキャッシュの初期化
	var rdb *redis.Client
	var cacheDB *gorm.DB
	done := make(chan bool)

	go func() {
		rdb, err = database.InitRedis(config, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Redis", zap.Error(err))
		}
		done <- true
	}()

	go func() {
		cacheDB, err = database.InitCacheDB(config, logger)
		if err != nil {
			logger.Fatal("ローカルキャッシュの初期化に失敗しました", zap.Error(err))
		}
		done <- true
	}()

	// 2つの初期化が完了するのを待つ
	<-done
	<-done

	kv, err := cache.New(cacheDB, logger)
	if err != nil {
		logger.Fatal("キャッシュテーブルの準備に失敗しました", zap.Error(err))
	}

	// 匿名サインイン。UIDは端末に保存され再起動後も同じになる
	identity, err := auth.AnonymousSignIn(kv, logger)
	if err != nil {
		logger.Fatal("匿名サインインに失敗しました", zap.Error(err))
	}

	store := remote.NewRedisStore(rdb, logger)
	rooms := room.NewManager(store, kv, logger)
	rooms.RestoreLocal() // 前回のルームを復元してコード再入力を不要にする

	players := syncer.New[models.Player](
		"players", remote.PlayersPath, cache.KeyPlayers,
		rooms, store, kv,
		remote.EncodePlayers, remote.DecodePlayers, logger,
	)
	matches := syncer.New[models.Match](
		"matches", remote.MatchesPath, cache.KeyMatches,
		rooms, store, kv,
		remote.EncodeMatches, remote.DecodeMatches, logger,
	)

	ctx := context.Background()
	app := &handlers.App{
		Players:  players,
		Matches:  matches,
		Rooms:    rooms,
		Identity: identity,
		Logger:   logger,
		BaseCtx:  ctx,
	}

	// ルームを復元できた場合はそのままセッションを開始
	if _, ok := rooms.RoomID(); ok {
		app.StartSession(ctx)
	}

	// 定期再同期ジョブを起動（失敗した楽観的書き込みの自己修復）
	resyncCron := utils.CronResync(app.Resync, logger)
	defer resyncCron.Stop()

	router := gin.Default()
	//リクエストロガーを起動
	router.Use(gin.Recovery(), utils.RequestLogger(logger))

	//CORS（Cross-Origin Resource Sharing）ポリシーを設定
	allowOrigins := config.AllowOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"http://localhost:8080"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	//各HTTPリクエストのルーティング
	router.GET("/session", app.GetSession)
	router.GET("/rooms", app.ListRooms)
	router.GET("/players", app.ListPlayers)
	router.GET("/matches", app.ListMatches)
	router.GET("/statistics", app.GetStatistics)
	router.GET("/ws", app.ServeWS)

	// 変更系はデバイストークンを要求する
	authorized := router.Group("/", middlewares.DeviceAuth(logger))
	authorized.POST("/rooms", app.CreateRoom)
	authorized.POST("/rooms/join", app.JoinRoom)
	authorized.POST("/rooms/leave", app.LeaveRoom)
	authorized.PUT("/rooms/:id", app.UpdateRoom)
	authorized.DELETE("/rooms/:id", app.DeleteRoom)
	authorized.POST("/players", app.CreatePlayer)
	authorized.PUT("/players/:id", app.UpdatePlayer)
	authorized.DELETE("/players/:id", app.DeletePlayer)
	authorized.POST("/matches", app.CreateMatch)
	authorized.PUT("/matches/:id", app.UpdateMatch)
	authorized.DELETE("/matches/:id", app.DeleteMatch)

	addr := config.ServerAddr
	if addr == "" {
		addr = ":8080" // デフォルトポート
	}
	if err := router.Run(addr); err != nil {
		logger.Fatal("Failed to run HTTP server", zap.Error(err))
	}
}
