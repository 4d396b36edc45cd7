package remote

import (
	"context"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Store は共有バックエンドを抽象化します。ドキュメントはパスをキーとするJSONバイト列で、
// Writeのたびに同じパスを購読している全クライアントへ全量プッシュされます。
type Store interface {
	// Write はドキュメントを保存し、購読者へ新しい全量を配信します。
	Write(ctx context.Context, path string, doc []byte) error
	// ReadOnce は1回だけ読み取ります。ドキュメントが無い場合は (nil, nil) を返します。
	ReadOnce(ctx context.Context, path string) ([]byte, error)
	// Subscribe はパスへの書き込みのたびに全量ドキュメントを受信するチャネルを返します。
	// 返却されるdetachを呼ぶと購読を解除します。
	Subscribe(ctx context.Context, path string) (<-chan []byte, func(), error)
	// SetIfAbsent はパスが未使用の場合のみ書き込みます（ルームコードの一意性確保用）。
	SetIfAbsent(ctx context.Context, path string, doc []byte) (bool, error)
	Delete(ctx context.Context, path string) error
	// ScanPaths はパターンに一致するパスの一覧を返します（ルーム一覧の取得用）。
	ScanPaths(ctx context.Context, pattern string) ([]string, error)
}

// パスの規約。ルームIDがプレイヤー・試合コレクションのパーティションキーです。
func PlayersPath(roomID string) string  { return "rooms/" + roomID + "/players" }
func MatchesPath(roomID string) string  { return "rooms/" + roomID + "/matches" }
func RoomInfoPath(roomID string) string { return "rooms/" + roomID + "/info" }
func RoomCodePath(code string) string   { return "roomCodes/" + code }

// RedisStore はRedisを使ったStoreの実装です。ドキュメントは文字列キーに保存し、
// 同名のpub/subチャネルで全量プッシュを配信します。
type RedisStore struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisStore(rdb *redis.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{rdb: rdb, logger: logger}
}

func (s *RedisStore) Write(ctx context.Context, path string, doc []byte) error {
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, path, doc, 0)
	pipe.Publish(ctx, path, doc)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("リモート書き込みに失敗しました", zap.String("path", path), zap.Error(err))
		return err
	}
	return nil
}

func (s *RedisStore) ReadOnce(ctx context.Context, path string) ([]byte, error) {
	val, err := s.rdb.Get(ctx, path).Bytes()
	if err == redis.Nil {
		return nil, nil // データ未作成は正常ケース
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (s *RedisStore) Subscribe(ctx context.Context, path string) (<-chan []byte, func(), error) {
	pubsub := s.rdb.Subscribe(ctx, path)
	// 購読が確立するまで待つ
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, err
	}

	out := make(chan []byte, 1)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			out <- []byte(msg.Payload)
		}
	}()

	detach := func() {
		if err := pubsub.Close(); err != nil {
			s.logger.Warn("購読解除に失敗しました", zap.String("path", path), zap.Error(err))
		}
	}
	return out, detach, nil
}

func (s *RedisStore) SetIfAbsent(ctx context.Context, path string, doc []byte) (bool, error) {
	return s.rdb.SetNX(ctx, path, doc, 0).Result()
}

func (s *RedisStore) Delete(ctx context.Context, path string) error {
	return s.rdb.Del(ctx, path).Err()
}

func (s *RedisStore) ScanPaths(ctx context.Context, pattern string) ([]string, error) {
	var paths []string
	iter := s.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		paths = append(paths, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return paths, nil
}
