// Package syncer はローカルキャッシュとリモート共有ストアの間で
// 1つのコレクション（プレイヤー、試合）を同期させるエンジンです。
//
// 同期モデルは「最後の全量プッシュが勝つ」方式です。書き込みは常に
// コレクション全体を置き換え、フィールド単位のマージや競合検出はありません。
// 2つの端末が同じエンティティを同時に編集した場合、後のプッシュが
// 丸ごと勝ちます（この挙動は仕様であり、修正ではなくドキュメント化の対象です）。
package syncer

import (
	"context"
	"sync"

	"lunepoker/cache"
	"lunepoker/models"
	"lunepoker/remote"

	"go.uber.org/zap"
)

// Entity は同期対象のエンティティ。IDでの集合比較に使います。
type Entity interface {
	EntityID() string
}

// Scope は現在アクティブなルームを返します。ルーム未選択の間は
// すべてのリモート操作がブロックされます。
type Scope interface {
	RoomID() (string, bool)
}

// Engine は1コレクション分の同期エンジンです。
// メモリ上のコレクションはこのエンジンだけが書き換えます。
type Engine[T Entity] struct {
	name     string
	path     func(roomID string) string
	cacheKey string
	scope    Scope
	store    remote.Store
	kv       cache.KV
	encode   func([]T) ([]byte, error)
	decode   func([]byte, *zap.Logger) []T
	logger   *zap.Logger

	// OnSyncError は非同期のリモート書き込みが失敗したときに呼ばれます。
	// 楽観的に適用済みのローカル状態はロールバックされません（致命的でない通知）。
	OnSyncError func(error)

	mu     sync.Mutex
	items  []T
	detach func()

	listenMu  sync.Mutex
	listeners map[int]chan []T
	nextID    int

	pending sync.WaitGroup
}

// New はコレクション1つ分のエンジンを生成します。
func New[T Entity](
	name string,
	path func(roomID string) string,
	cacheKey string,
	scope Scope,
	store remote.Store,
	kv cache.KV,
	encode func([]T) ([]byte, error),
	decode func([]byte, *zap.Logger) []T,
	logger *zap.Logger,
) *Engine[T] {
	return &Engine[T]{
		name:      name,
		path:      path,
		cacheKey:  cacheKey,
		scope:     scope,
		store:     store,
		kv:        kv,
		encode:    encode,
		decode:    decode,
		logger:    logger,
		listeners: make(map[int]chan []T),
	}
}

// Load はセッション開始時の読み込みを行います。
// まずローカルキャッシュ（壊れていても空として続行）、次にリモートを1回取得。
// リモートが空でなければリモートが正でメモリとキャッシュを置き換え、
// リモートが空でローカルに残っていればローカルを種としてリモートへ押し上げます。
// 同時に複数のLoadを呼ぶのは安全ではありません。呼び出し元で直列化してください。
func (e *Engine[T]) Load(ctx context.Context) error {
	data, err := e.kv.Load(e.cacheKey)
	if err != nil {
		// キャッシュ破損は「データ無し」として扱う
		e.logger.Warn("ローカルキャッシュの読み込みに失敗しました",
			zap.String("collection", e.name), zap.Error(err))
		data = nil
	}
	local := e.decode(data, e.logger)
	e.replace(local)

	roomID, ok := e.scope.RoomID()
	if !ok {
		return models.ErrNoRoom
	}

	remoteData, err := e.store.ReadOnce(ctx, e.path(roomID))
	if err != nil {
		// リモート不達時はローカルキャッシュのまま継続（古い可能性あり）
		e.logger.Warn("リモート取得に失敗したためローカルキャッシュで継続します",
			zap.String("collection", e.name), zap.Error(err))
		return nil
	}

	fetched := e.decode(remoteData, e.logger)
	if len(fetched) == 0 {
		if len(local) > 0 {
			// 初回ブートストラップ：ローカルの種をリモートへ
			e.logger.Info("リモートが空のためローカルデータを同期します",
				zap.String("collection", e.name), zap.Int("count", len(local)))
			e.persist(ctx, local)
		}
		return nil
	}

	e.replace(fetched)
	e.saveCache(fetched)
	return nil
}

// SubscribeRemote はリモートの全量プッシュの購読を開始します。
// 受信のたびにID集合で差分判定し、集合が変わっていればメモリとキャッシュを
// 丸ごと置き換えます。集合が同じでフィールドだけ違うプッシュは無視されます
// （全量置き換えモデルはメンバーシップの変化のみを検出する設計です）。
func (e *Engine[T]) SubscribeRemote(ctx context.Context) error {
	roomID, ok := e.scope.RoomID()
	if !ok {
		return models.ErrNoRoom
	}

	ch, detach, err := e.store.Subscribe(ctx, e.path(roomID))
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.detach != nil {
		e.detach()
	}
	e.detach = detach
	e.mu.Unlock()

	go func() {
		for doc := range ch {
			incoming := e.decode(doc, e.logger)
			e.applyPush(incoming)
		}
	}()
	return nil
}

// Detach は購読を解除します。飛行中の取得は完了しますが結果は破棄されます。
func (e *Engine[T]) Detach() {
	e.mu.Lock()
	detach := e.detach
	e.detach = nil
	e.mu.Unlock()
	if detach != nil {
		detach()
	}
}

// applyPush は受信した全量プッシュをメモリ状態へ反映します。
// 同じプッシュを2回受けても2回目はID集合が一致して短絡します。
func (e *Engine[T]) applyPush(incoming []T) {
	e.mu.Lock()
	if sameIdentitySet(e.items, incoming) {
		e.mu.Unlock()
		return
	}
	e.items = incoming
	snapshot := append([]T(nil), incoming...)
	e.mu.Unlock()

	e.notify(snapshot)
	e.saveCache(snapshot)
}

// Add はエンティティを追加し、キャッシュとリモートへ非同期で永続化します。
func (e *Engine[T]) Add(ctx context.Context, item T) {
	e.mutate(ctx, func(items []T) []T {
		return append(items, item)
	})
}

// Update は同じIDのエンティティを丸ごと置き換えます。見つからなければ何もしません。
func (e *Engine[T]) Update(ctx context.Context, item T) bool {
	found := false
	e.mutate(ctx, func(items []T) []T {
		for i := range items {
			if items[i].EntityID() == item.EntityID() {
				items[i] = item
				found = true
				break
			}
		}
		return items
	})
	return found
}

// Remove はIDの一致するエンティティを取り除きます。
func (e *Engine[T]) Remove(ctx context.Context, id string) {
	e.mutate(ctx, func(items []T) []T {
		out := items[:0]
		for _, item := range items {
			if item.EntityID() == id {
				continue
			}
			out = append(out, item)
		}
		return out
	})
}

// Replace はコレクション全体を置き換えます（プレイヤー削除の
// カスケードのように複数エンティティをまとめて書き換える場合用）。
func (e *Engine[T]) Replace(ctx context.Context, items []T) {
	e.mutate(ctx, func([]T) []T {
		return items
	})
}

// mutate は全ての変更操作の共通経路です。メモリへは同期的に適用し、
// キャッシュとリモートへは順序保証なしで並行に書き込みます。
// リモート書き込みが失敗してもローカル状態は巻き戻しません（楽観的適用）。
// 次の成功した書き込み、または他端末からのプッシュで最終的に収束します。
func (e *Engine[T]) mutate(ctx context.Context, apply func([]T) []T) {
	e.mu.Lock()
	e.items = apply(e.items)
	snapshot := append([]T(nil), e.items...)
	e.mu.Unlock()

	e.notify(snapshot)
	e.persist(ctx, snapshot)
}

// persist はスナップショットをキャッシュとリモートへ並行に書き込みます。
// ハンドラ応答後のリクエストコンテキスト取り消しでリモート書き込みが
// 中断されないよう、呼び出し元のキャンセルからは切り離します。
func (e *Engine[T]) persist(ctx context.Context, snapshot []T) {
	ctx = context.WithoutCancel(ctx)
	e.pending.Add(2)
	go func() {
		defer e.pending.Done()
		e.saveCache(snapshot)
	}()
	go func() {
		defer e.pending.Done()
		e.saveRemote(ctx, snapshot)
	}()
}

func (e *Engine[T]) saveCache(snapshot []T) {
	doc, err := e.encode(snapshot)
	if err != nil {
		e.logger.Error("キャッシュ用エンコードに失敗しました",
			zap.String("collection", e.name), zap.Error(err))
		return
	}
	// キャッシュ書き込みの失敗はログのみ（リモートが正のため次回Loadで回復）
	if err := e.kv.Save(e.cacheKey, doc); err != nil {
		e.logger.Warn("ローカルキャッシュの保存に失敗しました",
			zap.String("collection", e.name), zap.Error(err))
	}
}

func (e *Engine[T]) saveRemote(ctx context.Context, snapshot []T) {
	roomID, ok := e.scope.RoomID()
	if !ok {
		e.logger.Warn("ルーム未選択のためリモート保存をスキップします",
			zap.String("collection", e.name))
		return
	}
	doc, err := e.encode(snapshot)
	if err != nil {
		e.logger.Error("リモート用エンコードに失敗しました",
			zap.String("collection", e.name), zap.Error(err))
		return
	}
	if err := e.store.Write(ctx, e.path(roomID), doc); err != nil {
		e.logger.Error("リモート保存に失敗しました。ローカル状態は維持されます",
			zap.String("collection", e.name), zap.Error(err))
		if e.OnSyncError != nil {
			e.OnSyncError(err)
		}
	}
}

// Snapshot は現在のコレクションのコピーを返します。
// 統計エンジンやハンドラはこのコピーだけを読みます。
func (e *Engine[T]) Snapshot() []T {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]T(nil), e.items...)
}

// Flush は飛行中の非同期永続化の完了を待ちます（シャットダウン用）。
func (e *Engine[T]) Flush() {
	e.pending.Wait()
}

// Listen はメモリ状態が変わるたびにスナップショットを受け取るチャネルを返します。
// 返却されたクローザで登録を解除します。受信が追いつかない場合は古い
// スナップショットを捨てて最新だけを届けます。
func (e *Engine[T]) Listen() (<-chan []T, func()) {
	e.listenMu.Lock()
	id := e.nextID
	e.nextID++
	ch := make(chan []T, 1)
	e.listeners[id] = ch
	e.listenMu.Unlock()

	return ch, func() {
		e.listenMu.Lock()
		if _, ok := e.listeners[id]; ok {
			delete(e.listeners, id)
			close(ch)
		}
		e.listenMu.Unlock()
	}
}

func (e *Engine[T]) notify(snapshot []T) {
	e.listenMu.Lock()
	defer e.listenMu.Unlock()
	for _, ch := range e.listeners {
		// 滞留している古いスナップショットは破棄して最新を入れる
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// replace はロック越しにコレクションを差し替え、リスナへ通知します。
func (e *Engine[T]) replace(items []T) {
	e.mu.Lock()
	e.items = items
	snapshot := append([]T(nil), items...)
	e.mu.Unlock()
	e.notify(snapshot)
}

// sameIdentitySet はID集合が一致するかを判定します。深い比較は行いません。
func sameIdentitySet[T Entity](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	ids := make(map[string]bool, len(a))
	for _, item := range a {
		ids[item.EntityID()] = true
	}
	for _, item := range b {
		if !ids[item.EntityID()] {
			return false
		}
	}
	return true
}
