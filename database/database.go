package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"lunepoker/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// LoadConfig loads the configuration from config.json
func LoadConfig(filename string) (models.Config, error) {
	var config models.Config
	configFile, err := os.Open(filename)
	if err != nil {
		return config, err
	}
	defer configFile.Close()

	jsonParser := json.NewDecoder(configFile)
	err = jsonParser.Decode(&config)
	return config, err
}

// InitCacheDB は端末ローカルのSQLiteキャッシュを開きます。
func InitCacheDB(config models.Config, logger *zap.Logger) (*gorm.DB, error) {
	path := config.CachePath
	if path == "" {
		path = "lunepoker.db" // デフォルト値
	}

	const maxRetries = 3
	const retryInterval = 2 * time.Second
	var gormDB *gorm.DB
	var err error
	for i := 0; i <= maxRetries; i++ {
		gormDB, err = gorm.Open(sqlite.Open(path), &gorm.Config{})
		if err == nil {
			return gormDB, nil
		}
		logger.Error("キャッシュDB接続のリトライ", zap.Int("retry", i), zap.Error(err))
		time.Sleep(retryInterval)
	}
	return nil, fmt.Errorf("キャッシュDB接続に失敗しました: %v", err)
}

// InitRedis は共有バックエンドへの接続を初期化します。
func InitRedis(config models.Config, logger *zap.Logger) (*redis.Client, error) {
	// 環境変数からRedis接続情報を取得（config.jsonより優先）
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = config.RedisAddr
	}
	if redisAddr == "" {
		redisAddr = "localhost:6379" // デフォルト値
	}

	redisPassword := os.Getenv("REDIS_PASSWORD")
	if redisPassword == "" {
		redisPassword = config.RedisPassword
	}

	db := config.RedisDB
	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		n, err := strconv.Atoi(redisDB)
		if err != nil {
			logger.Info("Invalid REDIS_DB value, using config value")
		} else {
			db = n
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	// Redisへの接続テスト
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		logger.Error("Failed to connect to Redis", zap.Error(err))
		return nil, err
	}

	logger.Info("Connected to Redis")
	return rdb, nil
}
