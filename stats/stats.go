// Package stats は試合・プレイヤーのスナップショットから
// プレイヤー別の集計統計を導出する純粋関数群です。副作用もI/Oもありません。
package stats

import (
	"sort"
	"time"

	"lunepoker/models"
)

// PeriodFilter は集計前に試合へ適用する期間の絞り込みです。
type PeriodFilter string

const (
	AllTime         PeriodFilter = "allTime"
	LastMonth       PeriodFilter = "lastMonth"
	LastThreeMonths PeriodFilter = "lastThreeMonths"
	ThisYear        PeriodFilter = "thisYear"
)

// StatisticKey は並び替えに使う統計値の選択です。
type StatisticKey string

const (
	TotalBalance    StatisticKey = "balance"
	TotalWinnings   StatisticKey = "winnings"
	TotalLosses     StatisticKey = "losses"
	FirstPlaces     StatisticKey = "firstPlaces"
	Podiums         StatisticKey = "podiums"
	Participations  StatisticKey = "participations"
	WinRate         StatisticKey = "winRate"
	AveragePosition StatisticKey = "averagePosition"
	BiggestWin      StatisticKey = "biggestWin"
)

// SortOrder は並び順です。
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// ParsePeriod はクエリ文字列を期間フィルタに変換します。未知の値は全期間です。
func ParsePeriod(s string) PeriodFilter {
	switch PeriodFilter(s) {
	case LastMonth, LastThreeMonths, ThisYear:
		return PeriodFilter(s)
	default:
		return AllTime
	}
}

// ParseKey はクエリ文字列を統計キーに変換します。未知の値は収支です。
func ParseKey(s string) StatisticKey {
	switch StatisticKey(s) {
	case TotalWinnings, TotalLosses, FirstPlaces, Podiums,
		Participations, WinRate, AveragePosition, BiggestWin:
		return StatisticKey(s)
	default:
		return TotalBalance
	}
}

// ParseOrder はクエリ文字列を並び順に変換します。未知の値は降順です。
func ParseOrder(s string) SortOrder {
	if SortOrder(s) == Ascending {
		return Ascending
	}
	return Descending
}

// PlayerStat は1プレイヤー分の集計結果です。
type PlayerStat struct {
	Player              models.Player `json:"player"`
	TotalParticipations int           `json:"totalParticipations"`
	TotalWinnings       float64       `json:"totalWinnings"`
	TotalEntryFees      float64       `json:"totalEntryFees"`
	TotalLosses         float64       `json:"totalLosses"`
	Balance             float64       `json:"balance"`
	FirstPlaces         int           `json:"firstPlaces"`
	Podiums             int           `json:"podiums"`
	WinRate             float64       `json:"winRate"`
	AveragePosition     float64       `json:"averagePosition"`
	BiggestWin          float64       `json:"biggestWin"`
}

// FilterMatches は期間フィルタを適用した試合の部分集合を返します。
// 境界は包含です（date >= cutoff）。
func FilterMatches(matches []models.Match, period PeriodFilter, now time.Time) []models.Match {
	var cutoff time.Time
	switch period {
	case LastMonth:
		cutoff = now.AddDate(0, -1, 0)
	case LastThreeMonths:
		cutoff = now.AddDate(0, -3, 0)
	case ThisYear:
		cutoff = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		return matches
	}

	filtered := make([]models.Match, 0, len(matches))
	for _, m := range matches {
		if !m.Date.Before(cutoff) {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// TotalPrizePool は期間内の賞金プール合計を返します。
func TotalPrizePool(matches []models.Match, period PeriodFilter, now time.Time) float64 {
	total := 0.0
	for _, m := range FilterMatches(matches, period, now) {
		total += m.TotalPrize
	}
	return total
}

// ComputeStatistics はプレイヤー別の集計を導出し、選択した統計値で
// 並び替えた列を返します。期間内に1試合も参加していないプレイヤーは
// 出力に含まれません。同値の順位は入力順のまま安定です。
//
// TotalLossesは参加費の合計そのものです（勝ち金を差し引いた額ではありません）。
// 名前と中身のずれは既知の仕様判断で、ここでは原義のまま実装しています。
func ComputeStatistics(
	players []models.Player,
	matches []models.Match,
	period PeriodFilter,
	key StatisticKey,
	order SortOrder,
	now time.Time,
) []PlayerStat {
	filtered := FilterMatches(matches, period, now)

	statsList := make([]PlayerStat, 0, len(players))
	for _, player := range players {
		stat := computePlayerStat(player, filtered)
		if stat.TotalParticipations == 0 {
			continue // 期間内の参加ゼロは出力から除外
		}
		statsList = append(statsList, stat)
	}

	sortStats(statsList, key, order)
	return statsList
}

func computePlayerStat(player models.Player, matches []models.Match) PlayerStat {
	stat := PlayerStat{Player: player}
	var positions []int

	for _, match := range matches {
		participated := false
		var entryFee float64
		for _, p := range match.Participants {
			if p.PlayerID == player.ID {
				participated = true
				entryFee = p.EntryFee
				break
			}
		}
		if !participated {
			continue
		}

		stat.TotalParticipations++
		stat.TotalEntryFees += entryFee

		for _, w := range match.Winners {
			if w.PlayerID != player.ID {
				continue
			}
			stat.TotalWinnings += w.Amount
			if w.Amount > stat.BiggestWin {
				stat.BiggestWin = w.Amount
			}
			if w.Position == 1 {
				stat.FirstPlaces++
			}
			if w.Position <= 3 {
				stat.Podiums++
			}
			positions = append(positions, w.Position)
			break // 1試合につき入賞エントリは1つだけ数える
		}
	}

	// TotalLossesは「投入した金額」。winningsを引かない定義です。
	stat.TotalLosses = stat.TotalEntryFees
	stat.Balance = stat.TotalWinnings - stat.TotalEntryFees

	if stat.TotalParticipations > 0 {
		stat.WinRate = float64(stat.FirstPlaces) / float64(stat.TotalParticipations) * 100
	}
	if len(positions) > 0 {
		sum := 0
		for _, p := range positions {
			sum += p
		}
		stat.AveragePosition = float64(sum) / float64(len(positions))
	}
	return stat
}

func sortStats(statsList []PlayerStat, key StatisticKey, order SortOrder) {
	value := func(s PlayerStat) float64 {
		switch key {
		case TotalWinnings:
			return s.TotalWinnings
		case TotalLosses:
			return s.TotalLosses
		case FirstPlaces:
			return float64(s.FirstPlaces)
		case Podiums:
			return float64(s.Podiums)
		case Participations:
			return float64(s.TotalParticipations)
		case WinRate:
			return s.WinRate
		case BiggestWin:
			return s.BiggestWin
		case AveragePosition:
			return s.AveragePosition
		default:
			return s.Balance
		}
	}

	if key == AveragePosition && order == Descending {
		// 平均順位の降順は0（未入賞）を末尾へ寄せる特別扱い
		sort.SliceStable(statsList, func(i, j int) bool {
			a, b := statsList[i].AveragePosition, statsList[j].AveragePosition
			if a == 0 && b > 0 {
				return false
			}
			if b == 0 && a > 0 {
				return true
			}
			return a > b
		})
		return
	}

	sort.SliceStable(statsList, func(i, j int) bool {
		if order == Ascending {
			return value(statsList[i]) < value(statsList[j])
		}
		return value(statsList[i]) > value(statsList[j])
	})
}
