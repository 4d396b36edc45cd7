package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Room モデルの定義。Codeは人が入力する短い英数字の合言葉で、
// IDとは別にroomCodes/{code}のマッピングで引けるようにします。
// RoomのIDがプレイヤー・試合コレクションのパーティションキーになります。
type Room struct {
	ID        string
	Name      string
	Code      string
	CreatedAt time.Time
	CreatedBy string
	ImageURL  string
}

// NewRoom は新しいIDを発行してRoomを生成します。
func NewRoom(name, code, createdBy string) Room {
	return Room{
		ID:        uuid.New().String(),
		Name:      name,
		Code:      code,
		CreatedAt: time.Now().UTC(),
		CreatedBy: createdBy,
	}
}

// rooms/{roomId}/info ドキュメントのワイヤ形式。createdAtはエポック秒です。
type roomDoc struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Code      string  `json:"code"`
	CreatedAt float64 `json:"createdAt"`
	CreatedBy string  `json:"createdBy"`
	ImageURL  string  `json:"imageURL,omitempty"`
}

func (r Room) MarshalJSON() ([]byte, error) {
	return json.Marshal(roomDoc{
		ID:        r.ID,
		Name:      r.Name,
		Code:      r.Code,
		CreatedAt: float64(r.CreatedAt.Unix()),
		CreatedBy: r.CreatedBy,
		ImageURL:  r.ImageURL,
	})
}

func (r *Room) UnmarshalJSON(b []byte) error {
	var doc roomDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	r.ID = doc.ID
	r.Name = doc.Name
	r.Code = doc.Code
	r.CreatedAt = time.Unix(int64(doc.CreatedAt), 0).UTC()
	r.CreatedBy = doc.CreatedBy
	r.ImageURL = doc.ImageURL
	return nil
}
