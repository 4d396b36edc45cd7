package cache

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 端末ローカルのキャッシュに使うキー
const (
	KeyPlayers     = "players"
	KeyMatches     = "matches"
	KeyCurrentRoom = "currentRoom"
	KeyDeviceUID   = "deviceUID"
)

// KV はローカルキャッシュの読み書きインターフェースです。
// 値はリモートドキュメントと同じJSONバイト列で、最後に確認した
// リモート状態のミラーとして保持します。
type KV interface {
	Save(key string, value []byte) error
	// Load はキーが無い場合 (nil, nil) を返します。
	Load(key string) ([]byte, error)
	Delete(key string) error
}

// Entry モデルの定義
type Entry struct {
	Key   string `gorm:"primaryKey"`
	Value []byte
}

func (Entry) TableName() string { return "cache_entries" }

// Store はSQLiteに保存するKVの実装です。
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

func New(db *gorm.DB, logger *zap.Logger) (*Store, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Save(key string, value []byte) error {
	entry := Entry{Key: key, Value: value}
	// 既存キーは上書き
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&entry).Error
}

func (s *Store) Load(key string) ([]byte, error) {
	var entry Entry
	err := s.db.First(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry.Value, nil
}

func (s *Store) Delete(key string) error {
	return s.db.Delete(&Entry{}, "key = ?", key).Error
}
