package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// 賞金プールの検証に使う許容誤差（浮動小数点のため）
const PrizeTolerance = 0.01

// 参加費の初期値と増減幅
const (
	DefaultEntryFee   = 10.0
	EntryFeeIncrement = 5.0
)

// Participant は1試合への参加エントリ。PlayerIDの実在性は書き込み時に検証されません。
type Participant struct {
	PlayerID string  `json:"playerID"`
	EntryFee float64 `json:"entryFee"`
}

// Winner は入賞者。Positionは1始まりの順位です。
type Winner struct {
	PlayerID string  `json:"playerID"`
	Position int     `json:"position"`
	Amount   float64 `json:"amount"`
}

// Match モデルの定義。TotalPrizeは作成時点の参加費合計のスナップショットで、
// 後から参加費を編集しても再計算されません。
type Match struct {
	ID           string
	Date         time.Time
	TotalPrize   float64
	Participants []Participant
	Winners      []Winner
}

// リモートドキュメントのワイヤ形式。dateはエポック秒です。
type matchDoc struct {
	ID           string        `json:"id"`
	Date         float64       `json:"date"`
	TotalPrize   float64       `json:"totalPrize"`
	Participants []Participant `json:"participants"`
	Winners      []Winner      `json:"winners"`
}

func (m Match) MarshalJSON() ([]byte, error) {
	return json.Marshal(matchDoc{
		ID:           m.ID,
		Date:         float64(m.Date.Unix()),
		TotalPrize:   m.TotalPrize,
		Participants: m.Participants,
		Winners:      m.Winners,
	})
}

func (m *Match) UnmarshalJSON(b []byte) error {
	var doc matchDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	m.ID = doc.ID
	m.Date = time.Unix(int64(doc.Date), 0).UTC()
	m.TotalPrize = doc.TotalPrize
	m.Participants = doc.Participants
	m.Winners = doc.Winners
	return nil
}

// NewMatch はTotalPrizeを参加費合計から確定してMatchを生成します。
func NewMatch(date time.Time, participants []Participant, winners []Winner) Match {
	total := 0.0
	for _, p := range participants {
		total += p.EntryFee
	}
	return Match{
		ID:           uuid.New().String(),
		Date:         date,
		TotalPrize:   total,
		Participants: participants,
		Winners:      winners,
	}
}

func (m Match) EntityID() string { return m.ID }

// Validate は保存前の検証を行います。違反があれば*ValidationErrorを返します。
// ここで弾かれたMatchは同期エンジンに渡りません。
func (m Match) Validate() error {
	if len(m.Participants) == 0 {
		return &ValidationError{Reason: "at least one participant is required"}
	}
	if len(m.Winners) == 0 {
		return &ValidationError{Reason: "at least one winner is required"}
	}

	// 参加費の合計とTotalPrizeの一致
	fees := 0.0
	participantIDs := make(map[string]bool, len(m.Participants))
	for _, p := range m.Participants {
		if p.EntryFee < 0 {
			return &ValidationError{Reason: "entry fee must not be negative"}
		}
		fees += p.EntryFee
		participantIDs[p.PlayerID] = true
	}
	if math.Abs(m.TotalPrize-fees) >= PrizeTolerance {
		return &ValidationError{Reason: "total prize must equal the sum of entry fees"}
	}

	// 勝者の検証：賞金配分の合計、順位の重複、参加者に含まれるか
	winnings := 0.0
	positions := make(map[int]bool, len(m.Winners))
	for _, w := range m.Winners {
		if w.Amount < 0 {
			return &ValidationError{Reason: "winner amount must not be negative"}
		}
		if w.Position < 1 {
			return &ValidationError{Reason: fmt.Sprintf("winner position must be positive, got %d", w.Position)}
		}
		if positions[w.Position] {
			return &ValidationError{Reason: fmt.Sprintf("duplicate winner position %d", w.Position)}
		}
		positions[w.Position] = true
		if !participantIDs[w.PlayerID] {
			return &ValidationError{Reason: "winner must be one of the participants"}
		}
		winnings += w.Amount
	}
	if math.Abs(winnings-m.TotalPrize) >= PrizeTolerance {
		return &ValidationError{Reason: "total winnings must equal the total prize pool"}
	}
	return nil
}

// RemovePlayer はプレイヤー削除時のカスケード処理。
// 参加者・勝者リストから該当プレイヤーを取り除き、変更があったらtrueを返します。
// スナップショットの浅いコピーに対して呼ばれるため、元のスライスの
// 裏配列には書き込まず、新しいスライスを割り当てます。
func (m *Match) RemovePlayer(playerID string) bool {
	changed := false
	participants := make([]Participant, 0, len(m.Participants))
	for _, p := range m.Participants {
		if p.PlayerID == playerID {
			changed = true
			continue
		}
		participants = append(participants, p)
	}
	m.Participants = participants

	winners := make([]Winner, 0, len(m.Winners))
	for _, w := range m.Winners {
		if w.PlayerID == playerID {
			changed = true
			continue
		}
		winners = append(winners, w)
	}
	m.Winners = winners
	return changed
}
