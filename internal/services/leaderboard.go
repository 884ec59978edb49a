// Package services holds the thin read-facing layer over the model
// queries: HTTP handlers never talk to dbtx.Querier directly, matching
// the teacher's handlers -> services -> models layering.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"snake-arena-backend/internal/models"
)

// LeaderboardService serves the read-only leaderboard views: ranked
// entries (enough games played) and placement entries (still
// establishing a rating). It caches both in Redis the same way the
// original retro-games leaderboard did, just keyed by leaderboard ID
// instead of game ID.
type LeaderboardService struct {
	db          *pgxpool.Pool
	redis       *redis.Client
	cacheTTL    time.Duration
	minGames    int
}

// NewLeaderboardService wires the service to its pool, cache, and the
// MIN_GAMES_FOR_RANKING threshold.
func NewLeaderboardService(db *pgxpool.Pool, redisClient *redis.Client, minGamesForRanking int) *LeaderboardService {
	return &LeaderboardService{
		db:       db,
		redis:    redisClient,
		cacheTTL: 30 * time.Second,
		minGames: minGamesForRanking,
	}
}

// RankedView is the response shape for GET /leaderboards/:id/ranked.
type RankedView struct {
	LeaderboardID uuid.UUID             `json:"leaderboard_id"`
	Entries       []models.RankedEntry  `json:"entries"`
}

// PlacementView is the response shape for GET /leaderboards/:id/placement.
type PlacementView struct {
	LeaderboardID uuid.UUID            `json:"leaderboard_id"`
	Entries       []models.RankedEntry `json:"entries"`
}

// GetRanked returns snakes with at least MIN_GAMES_FOR_RANKING games
// played, ordered by display score — the competitive leaderboard view
// (SPEC_FULL.md Supplemented Features, placement/ranked split).
func (l *LeaderboardService) GetRanked(ctx context.Context, leaderboardID uuid.UUID) (*RankedView, error) {
	cacheKey := fmt.Sprintf("leaderboard:%s:ranked", leaderboardID)

	if cached, err := l.redis.Get(ctx, cacheKey).Result(); err == nil {
		var view RankedView
		if json.Unmarshal([]byte(cached), &view) == nil {
			return &view, nil
		}
	}

	entries, err := models.GetRankedEntries(ctx, l.db, leaderboardID, l.minGames)
	if err != nil {
		return nil, fmt.Errorf("get ranked leaderboard: %w", err)
	}

	view := &RankedView{LeaderboardID: leaderboardID, Entries: entries}
	if raw, err := json.Marshal(view); err == nil {
		l.redis.Set(ctx, cacheKey, raw, l.cacheTTL)
	}
	return view, nil
}

// GetPlacement returns snakes still below MIN_GAMES_FOR_RANKING games,
// ordered by games played — they're visible, just not yet ranked.
func (l *LeaderboardService) GetPlacement(ctx context.Context, leaderboardID uuid.UUID) (*PlacementView, error) {
	cacheKey := fmt.Sprintf("leaderboard:%s:placement", leaderboardID)

	if cached, err := l.redis.Get(ctx, cacheKey).Result(); err == nil {
		var view PlacementView
		if json.Unmarshal([]byte(cached), &view) == nil {
			return &view, nil
		}
	}

	entries, err := models.GetPlacementEntries(ctx, l.db, leaderboardID, l.minGames)
	if err != nil {
		return nil, fmt.Errorf("get placement leaderboard: %w", err)
	}

	view := &PlacementView{LeaderboardID: leaderboardID, Entries: entries}
	if raw, err := json.Marshal(view); err == nil {
		l.redis.Set(ctx, cacheKey, raw, l.cacheTTL)
	}
	return view, nil
}

// SetDisabled pauses or resumes a leaderboard. Admin-only; invalidates
// nothing in the cache since disabling doesn't change rankings, only
// whether the matchmaker considers the leaderboard.
func (l *LeaderboardService) SetDisabled(ctx context.Context, leaderboardID uuid.UUID, disabled bool) error {
	var disabledAt *time.Time
	if disabled {
		now := time.Now()
		disabledAt = &now
	}
	return models.SetLeaderboardDisabled(ctx, l.db, leaderboardID, disabledAt)
}
