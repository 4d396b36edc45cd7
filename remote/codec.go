package remote

import (
	"encoding/json"
	"sort"

	"lunepoker/models"

	"go.uber.org/zap"
)

// コレクションドキュメントはIDをキーとするJSONオブジェクトです。
// デコードは寛容に行い、壊れたエントリは読み飛ばして空相当として扱います
// （スキーマ不一致でクラッシュさせないための方針）。

// EncodePlayers はプレイヤー一覧をIDキーのドキュメントに変換します。
func EncodePlayers(players []models.Player) ([]byte, error) {
	doc := make(map[string]models.Player, len(players))
	for _, p := range players {
		doc[p.ID] = p
	}
	return json.Marshal(doc)
}

// DecodePlayers はドキュメントをプレイヤー一覧に戻します。
// データが無い・壊れている場合は空の一覧を返します。
func DecodePlayers(data []byte, logger *zap.Logger) []models.Player {
	if len(data) == 0 {
		return nil
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Warn("プレイヤードキュメントのデコードに失敗しました", zap.Error(err))
		return nil
	}
	players := make([]models.Player, 0, len(doc))
	for id, raw := range doc {
		var p models.Player
		if err := json.Unmarshal(raw, &p); err != nil {
			logger.Warn("プレイヤーエントリを読み飛ばします", zap.String("id", id), zap.Error(err))
			continue
		}
		players = append(players, p)
	}
	// map順序は不定なのでIDで安定化させる
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players
}

// EncodeMatches は試合一覧をIDキーのドキュメントに変換します。
func EncodeMatches(matches []models.Match) ([]byte, error) {
	doc := make(map[string]models.Match, len(matches))
	for _, m := range matches {
		doc[m.ID] = m
	}
	return json.Marshal(doc)
}

// DecodeMatches はドキュメントを試合一覧に戻します。
func DecodeMatches(data []byte, logger *zap.Logger) []models.Match {
	if len(data) == 0 {
		return nil
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Warn("試合ドキュメントのデコードに失敗しました", zap.Error(err))
		return nil
	}
	matches := make([]models.Match, 0, len(doc))
	for id, raw := range doc {
		var m models.Match
		if err := json.Unmarshal(raw, &m); err != nil {
			logger.Warn("試合エントリを読み飛ばします", zap.String("id", id), zap.Error(err))
			continue
		}
		matches = append(matches, m)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches
}
