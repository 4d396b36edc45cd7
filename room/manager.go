// Package room はアクティブなルーム（パーティション）の状態を管理します。
package room

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"lunepoker/cache"
	"lunepoker/models"
	"lunepoker/remote"
	"lunepoker/utils"

	"go.uber.org/zap"
)

// Manager は現在参加中のルームを保持します。状態は NoRoom / InRoom の2つで、
// プレイヤー・試合へのリモート操作は全てここで決まるルームIDに紐づきます。
// currentRoomを書き換えるのはこのManagerだけです。
type Manager struct {
	store  remote.Store
	kv     cache.KV
	logger *zap.Logger

	mu      sync.Mutex
	current *models.Room
}

func NewManager(store remote.Store, kv cache.KV, logger *zap.Logger) *Manager {
	return &Manager{store: store, kv: kv, logger: logger}
}

// RoomID は現在のルームIDを返します。syncer.Scopeの実装です。
func (m *Manager) RoomID() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return "", false
	}
	return m.current.ID, true
}

// Current は現在のルームを返します。
func (m *Manager) Current() (models.Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return models.Room{}, false
	}
	return *m.current, true
}

// Create は新しいルームとコードマッピングを作成し、現在のルームに設定します。
// コードマッピングの書き込みに失敗した場合は作成失敗として扱い、
// 先に書いたルーム情報をベストエフォートで掃除します。
func (m *Manager) Create(ctx context.Context, name, createdBy string) (models.Room, error) {
	newRoom := models.NewRoom(name, utils.GenerateRoomCode(), createdBy)

	doc, err := json.Marshal(newRoom)
	if err != nil {
		return models.Room{}, err
	}
	if err := m.store.Write(ctx, remote.RoomInfoPath(newRoom.ID), doc); err != nil {
		return models.Room{}, err
	}

	ok, err := m.store.SetIfAbsent(ctx, remote.RoomCodePath(newRoom.Code), []byte(newRoom.ID))
	if err != nil || !ok {
		// 片割れのルーム情報を残すと誰からも辿れない孤児になるので削除を試みる
		if cleanupErr := m.store.Delete(ctx, remote.RoomInfoPath(newRoom.ID)); cleanupErr != nil {
			m.logger.Warn("孤児ルームの削除に失敗しました",
				zap.String("roomID", newRoom.ID), zap.Error(cleanupErr))
		}
		if err != nil {
			return models.Room{}, err
		}
		return models.Room{}, &models.ValidationError{Reason: "room code already in use"}
	}

	m.setCurrent(newRoom)
	return newRoom, nil
}

// Join はコードからルームを検索して現在のルームに設定します。
// コード→ID、ID→ルーム情報の2段階の検索で、どちらかが外れるとErrNotFoundです。
func (m *Manager) Join(ctx context.Context, code string) (models.Room, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(code))

	idBytes, err := m.store.ReadOnce(ctx, remote.RoomCodePath(trimmed))
	if err != nil {
		return models.Room{}, err
	}
	if len(idBytes) == 0 {
		return models.Room{}, models.ErrNotFound
	}

	infoBytes, err := m.store.ReadOnce(ctx, remote.RoomInfoPath(string(idBytes)))
	if err != nil {
		return models.Room{}, err
	}
	if len(infoBytes) == 0 {
		return models.Room{}, models.ErrNotFound
	}

	var joined models.Room
	if err := json.Unmarshal(infoBytes, &joined); err != nil {
		m.logger.Warn("ルーム情報のデコードに失敗しました", zap.Error(err))
		return models.Room{}, models.ErrNotFound
	}

	m.setCurrent(joined)
	return joined, nil
}

// Update はルーム情報（名前・画像URL）を書き換えます。
func (m *Manager) Update(ctx context.Context, updated models.Room) error {
	doc, err := json.Marshal(updated)
	if err != nil {
		return err
	}
	if err := m.store.Write(ctx, remote.RoomInfoPath(updated.ID), doc); err != nil {
		return err
	}

	m.mu.Lock()
	isCurrent := m.current != nil && m.current.ID == updated.ID
	m.mu.Unlock()
	if isCurrent {
		m.setCurrent(updated)
	}
	return nil
}

// Leave はローカルの現在ルームのポインタを消すだけで、データには触れません。
func (m *Manager) Leave() {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	if err := m.kv.Delete(cache.KeyCurrentRoom); err != nil {
		m.logger.Warn("現在ルームのローカル削除に失敗しました", zap.Error(err))
	}
}

// Delete はルーム情報とコードマッピングを削除します。
// プレイヤー・試合のサブコレクションは明示的には消さず、ルームIDの下の
// 到達不能な孤児として残ります（元の挙動のまま）。
func (m *Manager) Delete(ctx context.Context, target models.Room) error {
	var deleteErr error
	if err := m.store.Delete(ctx, remote.RoomInfoPath(target.ID)); err != nil {
		deleteErr = err
	}
	if err := m.store.Delete(ctx, remote.RoomCodePath(target.Code)); err != nil {
		deleteErr = err
	}

	m.mu.Lock()
	isCurrent := m.current != nil && m.current.ID == target.ID
	m.mu.Unlock()
	if isCurrent {
		m.Leave()
	}
	return deleteErr
}

// FetchAll は全ルームの一覧を作成日の新しい順で返します。
// 壊れたルーム情報は読み飛ばします。
func (m *Manager) FetchAll(ctx context.Context) ([]models.Room, error) {
	paths, err := m.store.ScanPaths(ctx, "rooms/*/info")
	if err != nil {
		return nil, err
	}

	rooms := make([]models.Room, 0, len(paths))
	for _, path := range paths {
		data, err := m.store.ReadOnce(ctx, path)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}
		var r models.Room
		if err := json.Unmarshal(data, &r); err != nil {
			m.logger.Warn("ルーム情報を読み飛ばします", zap.String("path", path), zap.Error(err))
			continue
		}
		rooms = append(rooms, r)
	}

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})
	return rooms, nil
}

// RestoreLocal は前回のセッションのルームをローカルキャッシュから復元します。
// アプリ再起動後もコードの再入力なしでセッションを継続できます。
func (m *Manager) RestoreLocal() {
	data, err := m.kv.Load(cache.KeyCurrentRoom)
	if err != nil || len(data) == 0 {
		return
	}
	var saved models.Room
	if err := json.Unmarshal(data, &saved); err != nil {
		m.logger.Warn("保存済みルームの復元に失敗しました", zap.Error(err))
		if err := m.kv.Delete(cache.KeyCurrentRoom); err != nil {
			m.logger.Warn("壊れたルームキャッシュの削除に失敗しました", zap.Error(err))
		}
		return
	}
	m.mu.Lock()
	m.current = &saved
	m.mu.Unlock()
}

func (m *Manager) setCurrent(r models.Room) {
	m.mu.Lock()
	m.current = &r
	m.mu.Unlock()

	data, err := json.Marshal(r)
	if err != nil {
		m.logger.Warn("現在ルームのエンコードに失敗しました", zap.Error(err))
		return
	}
	if err := m.kv.Save(cache.KeyCurrentRoom, data); err != nil {
		m.logger.Warn("現在ルームのローカル保存に失敗しました", zap.Error(err))
	}
}
