package api

import (
	"errors"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/evotehq/evote-backend/internal/eligibility"
	"github.com/evotehq/evote-backend/internal/logging"
	"github.com/evotehq/evote-backend/internal/middleware"
	"github.com/evotehq/evote-backend/internal/models"
	"github.com/evotehq/evote-backend/internal/notify"
	"github.com/evotehq/evote-backend/internal/otp"
	"github.com/evotehq/evote-backend/internal/roster"
)

var otpPattern = regexp.MustCompile(`^\d{6}$`)

// validateIdentifier rejects obviously malformed identifiers before any
// lookup or state change.
func validateIdentifier(identifier string) bool {
	id := strings.TrimSpace(identifier)
	if id == "" || len(id) > 100 {
		return false
	}
	if strings.Contains(id, "@") && !emailPattern.MatchString(id) {
		return false
	}
	return true
}

// otpKeyFor scopes a passcode to the (voter, election) pair so a code issued
// for one election cannot verify for another.
func otpKeyFor(voterID, electionID string) string {
	return voterID + "|" + electionID
}

func (h *Handlers) dispatchOTP(c *gin.Context, v *models.Voter, code string) {
	err := h.Sender.Send(c.Request.Context(), notify.Recipient{
		Identifier: v.VoterID,
		Email:      v.Email,
		Phone:      v.Phone,
	}, code)
	if err != nil {
		logging.Error("otp dispatch failed", zap.String("voter", v.VoterID), zap.Error(err))
	}
}

func gateErrorResponse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, eligibility.ErrElectionNotActive):
		c.JSON(http.StatusForbidden, gin.H{"error": "election_not_active"})
	case errors.Is(err, eligibility.ErrNotEligible):
		c.JSON(http.StatusForbidden, gin.H{"eligible": false, "message": "You are not eligible"})
	case errors.Is(err, eligibility.ErrAlreadyVoted):
		c.JSON(http.StatusForbidden, gin.H{"eligible": false, "message": "You have already voted"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	}
}

func (h *Handlers) IdentifyHandler(c *gin.Context) {
	var req struct {
		Identifier string `json:"identifier" binding:"required"`
		ElectionID string `json:"electionId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identifier and electionId are required"})
		return
	}
	if !validateIdentifier(req.Identifier) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifier is required"})
		return
	}

	voter, err := h.Gate.Check(c.Request.Context(), req.Identifier, req.ElectionID)
	if err != nil {
		gateErrorResponse(c, err)
		return
	}

	code, err := h.OTP.Issue(c.Request.Context(), otpKeyFor(voter.VoterID, req.ElectionID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	h.dispatchOTP(c, voter, code)

	resp := gin.H{"ok": true, "message": "otp_sent"}
	if h.ExposeDevOTP {
		resp["devOtp"] = code
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) VerifyOTPHandler(c *gin.Context) {
	var req struct {
		Identifier string `json:"identifier" binding:"required"`
		ElectionID string `json:"electionId" binding:"required"`
		OTP        string `json:"otp" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identifier, electionId and otp are required"})
		return
	}
	if !otpPattern.MatchString(req.OTP) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "OTP must be exactly 6 digits"})
		return
	}

	voter, err := h.Gate.Check(c.Request.Context(), req.Identifier, req.ElectionID)
	if err != nil {
		gateErrorResponse(c, err)
		return
	}

	ok, err := h.OTP.Verify(c.Request.Context(), otpKeyFor(voter.VoterID, req.ElectionID), req.OTP)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_otp"})
		return
	}

	ref, err := h.Roster.HashedRef(c.Request.Context(), voter.VoterID, req.ElectionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	tokenStr, err := h.Tokens.Issue(c.Request.Context(), req.ElectionID, ref, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenStr})
}

func (h *Handlers) RegenerateOTPHandler(c *gin.Context) {
	var req struct {
		Identifier string `json:"identifier" binding:"required"`
		ElectionID string `json:"electionId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identifier required"})
		return
	}

	voter, err := h.Roster.FindByIdentifier(c.Request.Context(), req.Identifier)
	if err != nil || !voter.Eligible {
		c.JSON(http.StatusNotFound, gin.H{"error": "voter_not_found_or_not_eligible"})
		return
	}

	key := voter.VoterID
	if req.ElectionID != "" {
		key = otpKeyFor(voter.VoterID, req.ElectionID)
	}
	code, err := h.OTP.Regenerate(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, otp.ErrOTPStillValid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "otp_still_valid"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	h.dispatchOTP(c, voter, code)

	resp := gin.H{"ok": true, "message": "otp_sent"}
	if h.ExposeDevOTP {
		resp["devOtp"] = code
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) LoginStartHandler(c *gin.Context) {
	var req struct {
		Identifier string `json:"identifier" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identifier required"})
		return
	}

	voter, err := h.Roster.FindByIdentifier(c.Request.Context(), req.Identifier)
	if err != nil || !voter.Eligible {
		c.JSON(http.StatusNotFound, gin.H{"error": "voter_not_found_or_not_eligible"})
		return
	}

	code, err := h.OTP.Issue(c.Request.Context(), voter.VoterID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	h.dispatchOTP(c, voter, code)

	resp := gin.H{"ok": true, "message": "otp_sent"}
	if h.ExposeDevOTP {
		resp["devOtp"] = code
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) LoginVerifyHandler(c *gin.Context) {
	var req struct {
		Identifier string `json:"identifier" binding:"required"`
		OTP        string `json:"otp" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identifier_and_otp_required"})
		return
	}

	voter, err := h.Roster.FindByIdentifier(c.Request.Context(), req.Identifier)
	if err != nil || !voter.Eligible {
		c.JSON(http.StatusNotFound, gin.H{"error": "voter_not_found_or_not_eligible"})
		return
	}

	ok, err := h.OTP.Verify(c.Request.Context(), voter.VoterID, req.OTP)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_otp"})
		return
	}

	session, err := middleware.SignVoterToken(voter.VoterID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": session})
}

func (h *Handlers) MeHandler(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok || principal.Kind != models.KindVoter {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "voter_auth_required"})
		return
	}

	voter, err := h.Roster.Get(c.Request.Context(), principal.ID)
	if err != nil {
		if errors.Is(err, roster.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "voter_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	now := time.Now()
	running := []models.Election{}
	upcoming := []models.Election{}
	closed := []models.Election{}
	for _, id := range voter.AssignedElections {
		e, err := h.Elections.Get(c.Request.Context(), id)
		if err != nil {
			continue
		}
		switch {
		case e.ActiveAt(now):
			running = append(running, *e)
		case e.Status == models.StatusDraft || now.Before(e.StartAt):
			upcoming = append(upcoming, *e)
		default:
			closed = append(closed, *e)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"voter": voter,
		"elections": gin.H{
			"running":  running,
			"upcoming": upcoming,
			"closed":   closed,
		},
	})
}

func (h *Handlers) ActiveElectionsHandler(c *gin.Context) {
	elections, err := h.Elections.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch elections"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"elections": elections})
}

func (h *Handlers) EligibleElectionsHandler(c *gin.Context) {
	var req struct {
		Identifier string `json:"identifier" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identifier required"})
		return
	}

	voter, err := h.Roster.FindByIdentifier(c.Request.Context(), req.Identifier)
	if err != nil || !voter.Eligible {
		c.JSON(http.StatusOK, gin.H{"elections": []models.Election{}})
		return
	}

	now := time.Now()
	eligible := []models.Election{}
	for _, id := range voter.AssignedElections {
		e, err := h.Elections.Get(c.Request.Context(), id)
		if err != nil {
			continue
		}
		if e.ActiveAt(now) {
			eligible = append(eligible, *e)
		}
	}
	c.JSON(http.StatusOK, gin.H{"elections": eligible})
}

func (h *Handlers) ElectionDetailsHandler(c *gin.Context) {
	e, err := h.Elections.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Election not found"})
		return
	}
	if e.Status != models.StatusRunning {
		c.JSON(http.StatusForbidden, gin.H{"error": "election_not_active"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"election": gin.H{
		"id":          e.ID,
		"title":       e.Title,
		"description": e.Description,
		"candidates":  e.Candidates,
		"start_at":    e.StartAt,
		"end_at":      e.EndAt,
	}})
}

func (h *Handlers) PublicResultsHandler(c *gin.Context) {
	e, err := h.Elections.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Election not found"})
		return
	}
	if !e.ResultsPublished {
		c.JSON(http.StatusForbidden, gin.H{"error": "results_not_published"})
		return
	}
	h.writeResults(c, e)
}

// writeResults recounts the stored ballots so the response always reflects
// the ground-truth vote rows.
func (h *Handlers) writeResults(c *gin.Context, e *models.Election) {
	tally, total, err := h.Ballots.Tally(c.Request.Context(), e.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	type candidateResult struct {
		CandidateID   string `json:"candidateId"`
		CandidateName string `json:"candidateName"`
		Votes         int64  `json:"votes"`
	}
	results := make([]candidateResult, 0, len(e.Candidates))
	for _, cand := range e.Candidates {
		results = append(results, candidateResult{
			CandidateID:   cand.ID,
			CandidateName: cand.Name,
			Votes:         tally[cand.ID],
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Votes > results[j].Votes })

	c.JSON(http.StatusOK, gin.H{
		"election":   e.Title,
		"totalVotes": total,
		"results":    results,
	})
}

func (h *Handlers) ResultsFeedHandler(c *gin.Context) {
	all, err := h.Elections.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch elections"})
		return
	}
	published := []models.Election{}
	for _, e := range all {
		if e.ResultsPublished {
			published = append(published, e)
		}
	}
	sort.Slice(published, func(i, j int) bool { return published[i].EndAt.After(published[j].EndAt) })
	c.JSON(http.StatusOK, gin.H{"elections": published})
}
