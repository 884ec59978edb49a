package matchmaker

import (
	"math"
	"math/rand"
	"sort"

	"snake-arena-backend/internal/models"
)

// Selector picks matchSize entries from the active pool for one match.
// It returns fewer than matchSize only when the pool itself is smaller
// than matchSize. Kept as an interface (rather than a bare function) so
// a future recency-aware selector can wrap SkillBandJitterSelector
// without touching the matchmaker loop (SPEC_FULL.md Open Questions).
type Selector interface {
	Select(entries []models.LeaderboardEntry, matchSize int) []models.LeaderboardEntry
}

// SkillBandJitterSelector sorts entries by display score, picks a
// random seed entry, then takes the matchSize entries whose jittered
// distance to the seed is smallest. The jitter keeps the same handful
// of top snakes from playing each other every single cycle.
type SkillBandJitterSelector struct {
	JitterMax float64
}

// NewSkillBandJitterSelector returns a selector with the jitter range
// used by the original server (0 to 5 display-score points).
func NewSkillBandJitterSelector() *SkillBandJitterSelector {
	return &SkillBandJitterSelector{JitterMax: 5.0}
}

// Select implements Selector.
func (s *SkillBandJitterSelector) Select(entries []models.LeaderboardEntry, matchSize int) []models.LeaderboardEntry {
	if len(entries) < matchSize {
		return nil
	}

	sorted := make([]models.LeaderboardEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].DisplayScore > sorted[j].DisplayScore })

	seedIdx := rand.Intn(len(sorted))
	seedScore := sorted[seedIdx].DisplayScore

	type candidate struct {
		index    int
		distance float64
	}
	candidates := make([]candidate, len(sorted))
	for i, e := range sorted {
		distance := math.Abs(e.DisplayScore - seedScore)
		jitter := rand.Float64() * s.JitterMax
		candidates[i] = candidate{index: i, distance: distance + jitter}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].distance < candidates[j].distance })

	selected := make([]models.LeaderboardEntry, 0, matchSize)
	for _, c := range candidates[:matchSize] {
		selected = append(selected, sorted[c.index])
	}
	return selected
}
