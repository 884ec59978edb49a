package handlers

import (
	"snake-arena-backend/internal/matchmaker"
	"snake-arena-backend/internal/services"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	leaderboardService *services.LeaderboardService
	matchmaker          *matchmaker.Matchmaker
}

// New creates a new handlers instance
func New(leaderboardService *services.LeaderboardService, mm *matchmaker.Matchmaker) *Handlers {
	return &Handlers{
		leaderboardService: leaderboardService,
		matchmaker:          mm,
	}
}
