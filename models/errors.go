package models

import "errors"

var (
	// ルームコードの検索に失敗した場合など
	ErrNotFound = errors.New("not found")
	// ルーム未選択の状態でプレイヤー・試合の操作を行った場合
	ErrNoRoom = errors.New("no room selected")
)

// ValidationError は保存前の検証エラーです。
// 書き込みが始まる前に同期的に呼び出し元へ返されます。
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }
