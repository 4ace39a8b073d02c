package learning

import (
	"math"
	"sort"
	"time"

	"github.com/khanglvm/ifs-cloud-mcp/internal/storage"
)

const (
	// frequencyWeight is the weight for frequency in the score (0.7 = 70%).
	frequencyWeight = 0.7

	// recencyWeight is the weight for recency in the score (0.3 = 30%).
	recencyWeight = 0.3

	// frequencyWindow is the time window to consider for frequency (7 days).
	frequencyWindow = 7 * 24 * time.Hour

	// recencyHalfLife is the half-life for exponential decay (24 hours).
	recencyHalfLife = 24 * time.Hour

	// frequencySaturation is the read count treated as maximal frequency.
	frequencySaturation = 20.0
)

// Score calculates a file's popularity from its read history.
// Formula: 0.7*frequency + 0.3*recency
func Score(path string, history []storage.UsageEvent) float64 {
	if len(history) == 0 {
		return 0.0
	}

	var own []storage.UsageEvent
	for _, event := range history {
		if event.Path == path {
			own = append(own, event)
		}
	}
	if len(own) == 0 {
		return 0.0
	}

	return frequencyWeight*calculateFrequency(own) + recencyWeight*calculateRecency(own)
}

// calculateFrequency measures how often a file is read in the last 7 days
// (normalized 0-1).
func calculateFrequency(history []storage.UsageEvent) float64 {
	count := 0
	windowStart := time.Now().Add(-frequencyWindow)

	for _, event := range history {
		if event.Timestamp.After(windowStart) {
			count++
		}
	}

	return math.Min(float64(count)/frequencySaturation, 1.0)
}

// calculateRecency measures how recent the reads are (normalized 0-1).
// Uses exponential decay: recent reads weighted higher.
func calculateRecency(history []storage.UsageEvent) float64 {
	if len(history) == 0 {
		return 0.0
	}

	now := time.Now()
	weightedSum := 0.0

	for _, event := range history {
		hoursSince := now.Sub(event.Timestamp).Hours()

		// weight = e^(-ln(2) * t / half_life): 0.5 after 24h, 0.25 after 48h
		weightedSum += math.Exp(-math.Ln2 * hoursSince / recencyHalfLife.Hours())
	}

	return math.Min(weightedSum/float64(len(history)), 1.0)
}

// Popularity returns the score of each path that has recent reads. Paths
// without history are absent from the map.
func Popularity(paths []string, store storage.Storage) map[string]float64 {
	scores := make(map[string]float64)
	if store == nil || len(paths) == 0 {
		return scores
	}

	history, err := store.GetUsageHistory("", time.Now().Add(-frequencyWindow))
	if err != nil || len(history) == 0 {
		return scores
	}

	byPath := make(map[string][]storage.UsageEvent)
	for _, event := range history {
		byPath[event.Path] = append(byPath[event.Path], event)
	}

	for _, path := range paths {
		if events, ok := byPath[path]; ok {
			scores[path] = Score(path, events)
		}
	}
	return scores
}

// FileScore represents a file with its popularity score.
type FileScore struct {
	Path  string  `json:"path"`
	Score float64 `json:"score"`
}

// RankFiles returns every file read in the last 7 days by popularity,
// highest first, ties by path.
func RankFiles(store storage.Storage) []FileScore {
	history, err := store.GetUsageHistory("", time.Now().Add(-frequencyWindow))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var paths []string
	for _, event := range history {
		if _, ok := seen[event.Path]; !ok {
			seen[event.Path] = struct{}{}
			paths = append(paths, event.Path)
		}
	}

	popularity := Popularity(paths, store)
	scores := make([]FileScore, 0, len(popularity))
	for path, score := range popularity {
		scores = append(scores, FileScore{Path: path, Score: score})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Path < scores[j].Path
	})
	return scores
}
