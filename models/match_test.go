package models

import (
	"encoding/json"
	"testing"
	"time"
)

func validMatch() Match {
	return NewMatch(
		time.Date(2025, time.May, 10, 0, 0, 0, 0, time.UTC),
		[]Participant{{PlayerID: "a", EntryFee: 10}, {PlayerID: "b", EntryFee: 10}},
		[]Winner{{PlayerID: "a", Position: 1, Amount: 15}, {PlayerID: "b", Position: 2, Amount: 5}},
	)
}

func TestNewMatchSnapshotsTotalPrize(t *testing.T) {
	m := validMatch()
	if m.TotalPrize != 20 {
		t.Fatalf("TotalPrize = %v, want 20", m.TotalPrize)
	}
	if m.ID == "" {
		t.Fatal("NewMatch should assign an id")
	}

	// 作成後に参加費を書き換えてもTotalPrizeは再計算されない
	m.Participants[0].EntryFee = 100
	if m.TotalPrize != 20 {
		t.Fatalf("TotalPrize must stay at creation-time snapshot, got %v", m.TotalPrize)
	}
}

func TestValidateAcceptsBalancedMatch(t *testing.T) {
	if err := validMatch().Validate(); err != nil {
		t.Fatalf("valid match rejected: %v", err)
	}
}

func TestValidateRejectsUnbalancedWinnings(t *testing.T) {
	m := validMatch()
	m.Winners[0].Amount = 100
	err := m.Validate()
	if err == nil {
		t.Fatal("unbalanced winnings must be rejected")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
}

func TestValidateToleratesFloatNoise(t *testing.T) {
	m := NewMatch(time.Now(),
		[]Participant{{PlayerID: "a", EntryFee: 0.1}, {PlayerID: "b", EntryFee: 0.2}},
		[]Winner{{PlayerID: "a", Position: 1, Amount: 0.3}},
	)
	if err := m.Validate(); err != nil {
		t.Fatalf("0.01 tolerance should absorb float noise: %v", err)
	}
}

func TestValidateRejectsDuplicatePositions(t *testing.T) {
	m := validMatch()
	m.Winners[1].Position = 1
	if m.Validate() == nil {
		t.Fatal("duplicate winner positions must be rejected")
	}
}

func TestValidateRejectsNonParticipantWinner(t *testing.T) {
	m := validMatch()
	m.Winners[0].PlayerID = "stranger"
	if m.Validate() == nil {
		t.Fatal("winner outside the participant set must be rejected")
	}
}

func TestValidateRejectsEmptySets(t *testing.T) {
	m := validMatch()
	m.Participants = nil
	if m.Validate() == nil {
		t.Fatal("match without participants must be rejected")
	}

	m = validMatch()
	m.Winners = nil
	if m.Validate() == nil {
		t.Fatal("match without winners must be rejected")
	}
}

func TestValidateRejectsNonPositivePosition(t *testing.T) {
	m := validMatch()
	m.Winners[0].Position = 0
	if m.Validate() == nil {
		t.Fatal("position 0 must be rejected")
	}
}

func TestRemovePlayerCascade(t *testing.T) {
	m := validMatch()
	if !m.RemovePlayer("a") {
		t.Fatal("RemovePlayer should report a change")
	}
	for _, p := range m.Participants {
		if p.PlayerID == "a" {
			t.Fatal("participant not removed")
		}
	}
	for _, w := range m.Winners {
		if w.PlayerID == "a" {
			t.Fatal("winner not removed")
		}
	}
	if m.RemovePlayer("a") {
		t.Fatal("second removal should be a no-op")
	}
}

// スナップショットの浅いコピーからのカスケードが元のMatchを壊さないこと。
// 同期エンジンのスナップショットはMatch構造体しか複製しないため、
// 内側のスライスの裏配列は共有されている。
func TestRemovePlayerLeavesSharedBackingArraysIntact(t *testing.T) {
	original := validMatch()
	shallow := original // スライスヘッダだけのコピー

	if !shallow.RemovePlayer("a") {
		t.Fatal("RemovePlayer should report a change")
	}

	if len(original.Participants) != 2 || original.Participants[0].PlayerID != "a" {
		t.Fatalf("original participants corrupted: %+v", original.Participants)
	}
	if len(original.Winners) != 2 || original.Winners[0].PlayerID != "a" {
		t.Fatalf("original winners corrupted: %+v", original.Winners)
	}
}

// dateはエポック秒でシリアライズされる
func TestMatchJSONRoundTrip(t *testing.T) {
	m := validMatch()
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}

	var wire map[string]interface{}
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatal(err)
	}
	if _, ok := wire["date"].(float64); !ok {
		t.Fatalf("date should serialize as an epoch-seconds number, got %T", wire["date"])
	}

	var back Match
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Date.Equal(m.Date) {
		t.Errorf("date round trip mismatch: %v != %v", back.Date, m.Date)
	}
	if back.TotalPrize != m.TotalPrize || len(back.Participants) != 2 || len(back.Winners) != 2 {
		t.Error("match fields lost in round trip")
	}
}
