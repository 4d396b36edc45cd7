package models

import (
	"github.com/google/uuid"
)

// Player モデルの定義。Card1/Card2はお気に入りハンドの2枚で、
// "AS"や"KH"のようなランク+スートのカードコード（52種）を保持します。
// 2枚が同じカードになることは禁止していません（元の挙動を維持）。
type Player struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Nickname    string `json:"nickname"`
	Description string `json:"description"`
	Card1       string `json:"card1"`
	Card2       string `json:"card2"`
}

// NewPlayer は新しいIDを発行してPlayerを生成します。
func NewPlayer(name, nickname, description, card1, card2 string) Player {
	return Player{
		ID:          uuid.New().String(),
		Name:        name,
		Nickname:    nickname,
		Description: description,
		Card1:       card1,
		Card2:       card2,
	}
}

func (p Player) EntityID() string { return p.ID }
