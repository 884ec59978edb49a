package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetRankedLeaderboard returns the ranked (>= MIN_GAMES_FOR_RANKING
// games played) view of one leaderboard.
func (h *Handlers) GetRankedLeaderboard(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid leaderboard id"})
		return
	}

	view, err := h.leaderboardService.GetRanked(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch leaderboard"})
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetPlacementLeaderboard returns the placement (< MIN_GAMES_FOR_RANKING
// games played) view of one leaderboard.
func (h *Handlers) GetPlacementLeaderboard(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid leaderboard id"})
		return
	}

	view, err := h.leaderboardService.GetPlacement(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch leaderboard"})
		return
	}

	c.JSON(http.StatusOK, view)
}

// SetLeaderboardDisabled is the admin endpoint that pauses or resumes a
// leaderboard, hiding it from the matchmaker while disabled.
func (h *Handlers) SetLeaderboardDisabled(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid leaderboard id"})
		return
	}

	var req struct {
		Disabled bool `json:"disabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.leaderboardService.SetDisabled(c.Request.Context(), id, req.Disabled); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update leaderboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard_id": id, "disabled": req.Disabled})
}

// TriggerMatchmaker is the admin endpoint that runs one matchmaker
// cycle immediately, outside its normal ticker cadence — useful for
// testing a newly created leaderboard without waiting for the interval.
func (h *Handlers) TriggerMatchmaker(c *gin.Context) {
	if err := h.matchmaker.RunOnce(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "matchmaker cycle failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "matchmaker cycle complete"})
}
