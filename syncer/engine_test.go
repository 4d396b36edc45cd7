package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lunepoker/cache"
	"lunepoker/models"
	"lunepoker/remote"

	"go.uber.org/zap"
)

type fakeScope struct {
	id string
}

func (s fakeScope) RoomID() (string, bool) {
	return s.id, s.id != ""
}

type fakeStore struct {
	mu         sync.Mutex
	docs       map[string][]byte
	failWrites bool
	failReads  bool
	honorCtx   bool
	writes     int
	pushCh     chan []byte
	detached   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string][]byte), pushCh: make(chan []byte, 4)}
}

func (s *fakeStore) Write(ctx context.Context, path string, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return errors.New("remote unavailable")
	}
	if s.honorCtx {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	s.docs[path] = doc
	s.writes++
	return nil
}

func (s *fakeStore) ReadOnce(ctx context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads {
		return nil, errors.New("remote unavailable")
	}
	return s.docs[path], nil
}

func (s *fakeStore) Subscribe(ctx context.Context, path string) (<-chan []byte, func(), error) {
	return s.pushCh, func() {
		s.mu.Lock()
		s.detached = true
		s.mu.Unlock()
	}, nil
}

func (s *fakeStore) SetIfAbsent(ctx context.Context, path string, doc []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[path]; ok {
		return false, nil
	}
	s.docs[path] = doc
	return true, nil
}

func (s *fakeStore) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, path)
	return nil
}

func (s *fakeStore) ScanPaths(ctx context.Context, pattern string) ([]string, error) {
	return nil, nil
}

type fakeKV struct {
	mu    sync.Mutex
	data  map[string][]byte
	saves int
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

func (kv *fakeKV) Save(key string, value []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.data[key] = value
	kv.saves++
	return nil
}

func (kv *fakeKV) Load(key string) ([]byte, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	return kv.data[key], nil
}

func (kv *fakeKV) Delete(key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.data, key)
	return nil
}

func player(id string) models.Player {
	return models.Player{ID: id, Name: "p-" + id}
}

func playersDoc(t *testing.T, ids ...string) []byte {
	t.Helper()
	list := make([]models.Player, 0, len(ids))
	for _, id := range ids {
		list = append(list, player(id))
	}
	doc, err := remote.EncodePlayers(list)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func newTestEngine(store *fakeStore, kv *fakeKV, roomID string) *Engine[models.Player] {
	return New[models.Player](
		"players", remote.PlayersPath, cache.KeyPlayers,
		fakeScope{id: roomID}, store, kv,
		remote.EncodePlayers, remote.DecodePlayers, zap.NewNop(),
	)
}

func ids(players []models.Player) map[string]bool {
	set := make(map[string]bool, len(players))
	for _, p := range players {
		set[p.ID] = true
	}
	return set
}

// リモートが空でなければリモートが正
func TestLoadRemoteReplacesLocalCache(t *testing.T) {
	store := newFakeStore()
	kv := newFakeKV()
	kv.data[cache.KeyPlayers] = playersDoc(t, "stale")
	store.docs[remote.PlayersPath("r1")] = playersDoc(t, "p1", "p2")

	e := newTestEngine(store, kv, "r1")
	if err := e.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	e.Flush()

	got := ids(e.Snapshot())
	if !got["p1"] || !got["p2"] || got["stale"] {
		t.Fatalf("in-memory state should mirror remote, got %v", got)
	}

	cached := remote.DecodePlayers(kv.data[cache.KeyPlayers], zap.NewNop())
	if len(cached) != 2 {
		t.Fatalf("local cache should be overwritten with remote state, got %d entries", len(cached))
	}
}

// リモートが空でローカルに残っていればローカルを種としてリモートへ
func TestLoadBootstrapsEmptyRemoteFromCache(t *testing.T) {
	store := newFakeStore()
	kv := newFakeKV()
	kv.data[cache.KeyPlayers] = playersDoc(t, "p1", "p2", "p3")

	e := newTestEngine(store, kv, "r1")
	if err := e.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	e.Flush()

	if len(e.Snapshot()) != 3 {
		t.Fatalf("expected 3 players from cache, got %d", len(e.Snapshot()))
	}
	pushed := remote.DecodePlayers(store.docs[remote.PlayersPath("r1")], zap.NewNop())
	if len(pushed) != 3 {
		t.Fatalf("local seed should be pushed to remote, remote has %d entries", len(pushed))
	}
}

func TestLoadWithoutRoom(t *testing.T) {
	e := newTestEngine(newFakeStore(), newFakeKV(), "")
	if err := e.Load(context.Background()); !errors.Is(err, models.ErrNoRoom) {
		t.Fatalf("expected ErrNoRoom, got %v", err)
	}
}

// リモート不達時はローカルキャッシュで継続（エラーにしない）
func TestLoadFallsBackWhenRemoteUnreachable(t *testing.T) {
	store := newFakeStore()
	store.failReads = true
	kv := newFakeKV()
	kv.data[cache.KeyPlayers] = playersDoc(t, "p1")

	e := newTestEngine(store, kv, "r1")
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("remote failure at load must be silent, got %v", err)
	}
	if len(e.Snapshot()) != 1 {
		t.Fatal("cache contents should remain available offline")
	}
}

// 壊れたキャッシュは空のコレクションとして扱う
func TestLoadToleratesCorruptCache(t *testing.T) {
	store := newFakeStore()
	kv := newFakeKV()
	kv.data[cache.KeyPlayers] = []byte("not json at all")

	e := newTestEngine(store, kv, "r1")
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("corrupt cache must not fail the load: %v", err)
	}
	if len(e.Snapshot()) != 0 {
		t.Fatal("corrupt cache should decode to an empty collection")
	}
}

// 同じプッシュの2回目はID集合が一致して短絡する
func TestApplyPushIsIdempotent(t *testing.T) {
	store := newFakeStore()
	kv := newFakeKV()
	e := newTestEngine(store, kv, "r1")

	e.applyPush([]models.Player{player("p1"), player("p2")})
	savesAfterFirst := kv.saves

	e.applyPush([]models.Player{player("p1"), player("p2")})
	if kv.saves != savesAfterFirst {
		t.Fatal("identical identity set must short-circuit the second push")
	}
}

// 集合が同じでフィールドだけ違うプッシュは置き換えない（全量置き換え設計の既知の挙動）
func TestPushWithSameIdentitySetIgnoresFieldChanges(t *testing.T) {
	e := newTestEngine(newFakeStore(), newFakeKV(), "r1")

	e.applyPush([]models.Player{{ID: "p1", Name: "before"}})
	e.applyPush([]models.Player{{ID: "p1", Name: "after"}})

	if e.Snapshot()[0].Name != "before" {
		t.Fatal("membership diff must not detect field-only changes")
	}
}

func TestPushWithDifferentIdentitySetReplacesWholesale(t *testing.T) {
	store := newFakeStore()
	kv := newFakeKV()
	e := newTestEngine(store, kv, "r1")

	e.applyPush([]models.Player{player("p1")})
	e.applyPush([]models.Player{player("p2"), player("p3")})

	got := ids(e.Snapshot())
	if got["p1"] || !got["p2"] || !got["p3"] {
		t.Fatalf("push with a different identity set must replace wholesale, got %v", got)
	}
	cached := remote.DecodePlayers(kv.data[cache.KeyPlayers], zap.NewNop())
	if len(cached) != 2 {
		t.Fatal("cache must follow the replaced state")
	}
}

func TestMutationsPersistToCacheAndRemote(t *testing.T) {
	store := newFakeStore()
	kv := newFakeKV()
	e := newTestEngine(store, kv, "r1")
	ctx := context.Background()

	e.Add(ctx, player("p1"))
	e.Add(ctx, player("p2"))
	e.Flush()

	if len(e.Snapshot()) != 2 {
		t.Fatal("add must apply synchronously in memory")
	}
	if got := remote.DecodePlayers(store.docs[remote.PlayersPath("r1")], zap.NewNop()); len(got) != 2 {
		t.Fatalf("remote should hold both players, got %d", len(got))
	}

	if !e.Update(ctx, models.Player{ID: "p1", Name: "renamed"}) {
		t.Fatal("update of an existing player should succeed")
	}
	if e.Update(ctx, player("ghost")) {
		t.Fatal("update of an unknown id should report not found")
	}

	e.Remove(ctx, "p2")
	e.Flush()
	if got := ids(e.Snapshot()); got["p2"] || !got["p1"] {
		t.Fatalf("remove failed, state %v", got)
	}
}

// ハンドラが応答を返してリクエストコンテキストが取り消された後でも
// 非同期のリモート書き込みは完了する
func TestPersistDetachesFromCallerCancellation(t *testing.T) {
	store := newFakeStore()
	store.honorCtx = true
	kv := newFakeKV()
	e := newTestEngine(store, kv, "r1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // ハンドラが既に応答を返した状況
	e.Add(ctx, player("p1"))
	e.Flush()

	got := remote.DecodePlayers(store.docs[remote.PlayersPath("r1")], zap.NewNop())
	if len(got) != 1 {
		t.Fatalf("remote write must survive caller cancellation, remote has %d entries", len(got))
	}
}

// リモート書き込みが失敗してもローカル状態は巻き戻さない（楽観的適用）
func TestMutateIsOptimisticOnRemoteFailure(t *testing.T) {
	store := newFakeStore()
	store.failWrites = true
	kv := newFakeKV()
	e := newTestEngine(store, kv, "r1")

	var syncErr error
	var mu sync.Mutex
	e.OnSyncError = func(err error) {
		mu.Lock()
		syncErr = err
		mu.Unlock()
	}

	e.Add(context.Background(), player("p1"))
	e.Flush()

	if len(e.Snapshot()) != 1 {
		t.Fatal("optimistic local state must survive the remote failure")
	}
	if cached := remote.DecodePlayers(kv.data[cache.KeyPlayers], zap.NewNop()); len(cached) != 1 {
		t.Fatal("local cache write is independent of the remote failure")
	}
	mu.Lock()
	defer mu.Unlock()
	if syncErr == nil {
		t.Fatal("remote failure must surface on the error hook")
	}
}

func TestSubscribeRemoteAppliesPushes(t *testing.T) {
	store := newFakeStore()
	kv := newFakeKV()
	e := newTestEngine(store, kv, "r1")

	if err := e.SubscribeRemote(context.Background()); err != nil {
		t.Fatal(err)
	}
	store.pushCh <- playersDoc(t, "p9")

	deadline := time.After(2 * time.Second)
	for {
		if got := ids(e.Snapshot()); got["p9"] {
			break
		}
		select {
		case <-deadline:
			t.Fatal("push was not applied in time")
		case <-time.After(10 * time.Millisecond):
		}
	}

	e.Detach()
	store.mu.Lock()
	defer store.mu.Unlock()
	if !store.detached {
		t.Fatal("Detach must release the remote subscription")
	}
}

func TestReplaceRewritesWholeCollection(t *testing.T) {
	store := newFakeStore()
	kv := newFakeKV()
	e := newTestEngine(store, kv, "r1")
	ctx := context.Background()

	e.Add(ctx, player("p1"))
	e.Replace(ctx, []models.Player{player("p2")})
	e.Flush()

	got := ids(e.Snapshot())
	if got["p1"] || !got["p2"] {
		t.Fatalf("replace must swap the whole collection, got %v", got)
	}
}
