package trainer

import "sort"

// MaxScoresPerMode caps the high-score list for each game mode.
const MaxScoresPerMode = 10

// trimScores sorts by score descending and keeps the best perMode records of each mode.
// Ties keep their existing order, so an older record wins over a newer equal one.
func trimScores(list []ScoreRecord, perMode int) []ScoreRecord {
	sorted := append([]ScoreRecord(nil), list...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	counts := make(map[string]int)
	out := make([]ScoreRecord, 0, len(sorted))
	for _, r := range sorted {
		if counts[r.GameMode] >= perMode {
			continue
		}
		counts[r.GameMode]++
		out = append(out, r)
	}
	return out
}

func filterScores(list []ScoreRecord, mode GameMode) []ScoreRecord {
	out := make([]ScoreRecord, 0, len(list))
	for _, r := range list {
		if r.GameMode == string(mode) {
			out = append(out, r)
		}
	}
	return out
}
