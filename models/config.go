package models

// Config 構造体はサーバーとストレージ接続の設定情報を保持します。
type Config struct {
	ServerAddr    string   `json:"server_addr"`
	CachePath     string   `json:"cache_path"`
	RedisAddr     string   `json:"redis_addr"`
	RedisPassword string   `json:"redis_password"`
	RedisDB       int      `json:"redis_db"`
	AllowOrigins  []string `json:"allow_origins"`
}
