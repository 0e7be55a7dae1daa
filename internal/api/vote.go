package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evotehq/evote-backend/internal/ballot"
	"github.com/evotehq/evote-backend/internal/token"
)

// CastHandler exchanges a voting token for exactly one recorded ballot.
// Candidate validation runs before redemption so a bad candidate choice does
// not burn the token.
func (h *Handlers) CastHandler(c *gin.Context) {
	electionID := c.Param("electionId")

	var req struct {
		Token       string `json:"token" binding:"required"`
		CandidateID string `json:"candidateId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token and candidate ID are required"})
		return
	}

	e, err := h.Elections.Get(c.Request.Context(), electionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Election not found"})
		return
	}
	if !e.ActiveAt(time.Now()) {
		c.JSON(http.StatusForbidden, gin.H{"error": "election_not_active"})
		return
	}
	if !e.HasCandidate(req.CandidateID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid candidate"})
		return
	}

	redeemed, err := h.Tokens.Redeem(c.Request.Context(), electionID, req.Token)
	if err != nil {
		if errors.Is(err, token.ErrInvalidOrUsedToken) {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid_or_used_token"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	// Defense in depth: eligibility may have been revoked between token
	// issuance and redemption.
	voter, err := h.Roster.FindByRef(c.Request.Context(), electionID, redeemed.VoterRef)
	if err != nil || !voter.Eligible || !voter.AssignedTo(electionID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not_eligible_for_this_election"})
		return
	}

	if _, err := h.Ballots.Record(c.Request.Context(), electionID, req.CandidateID, redeemed.VoterRef); err != nil {
		if errors.Is(err, ballot.ErrInvalidCandidate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid candidate"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Vote cast successfully"})
}
