package cache

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "cache.db")), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	store, err := New(db, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(KeyPlayers, []byte(`{"a":1}`)); err != nil {
		t.Fatal(err)
	}
	got, err := store.Load(KeyPlayers)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"a":1}` {
		t.Fatalf("loaded %q", got)
	}

	// 上書き保存
	if err := store.Save(KeyPlayers, []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	got, _ = store.Load(KeyPlayers)
	if string(got) != `{}` {
		t.Fatalf("after overwrite loaded %q", got)
	}
}

func TestLoadMissingKeyIsNil(t *testing.T) {
	store := newTestStore(t)
	got, err := store.Load("nothing-here")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("missing key should load as nil, got %q", got)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save(KeyCurrentRoom, []byte("room")); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(KeyCurrentRoom); err != nil {
		t.Fatal(err)
	}
	got, _ := store.Load(KeyCurrentRoom)
	if got != nil {
		t.Fatal("deleted key should load as nil")
	}
}
