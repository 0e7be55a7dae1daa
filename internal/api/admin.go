package api

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evotehq/evote-backend/internal/election"
	"github.com/evotehq/evote-backend/internal/models"
)

type candidateInput struct {
	ID   string `json:"id" binding:"required"`
	Name string `json:"name" binding:"required"`
}

type electionInput struct {
	Title       string           `json:"title" binding:"required,max=200"`
	Description string           `json:"description" binding:"max=1000"`
	Candidates  []candidateInput `json:"candidates" binding:"required,min=1,dive"`
	StartAt     time.Time        `json:"startAt" binding:"required"`
	EndAt       time.Time        `json:"endAt" binding:"required"`
}

func (in *electionInput) toModel() *models.Election {
	candidates := make([]models.Candidate, 0, len(in.Candidates))
	for _, c := range in.Candidates {
		candidates = append(candidates, models.Candidate{
			ID:   strings.TrimSpace(c.ID),
			Name: strings.TrimSpace(c.Name),
		})
	}
	return &models.Election{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Candidates:  candidates,
		StartAt:     in.StartAt,
		EndAt:       in.EndAt,
	}
}

func (h *Handlers) ListElectionsHandler(c *gin.Context) {
	elections, err := h.Elections.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch elections"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"elections": elections})
}

func (h *Handlers) CreateElectionHandler(c *gin.Context) {
	var req electionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.EndAt.After(req.StartAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "End date must be after start date"})
		return
	}

	e := req.toModel()
	if err := h.Elections.Create(c.Request.Context(), e); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create election"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"election": e})
}

func (h *Handlers) GetElectionHandler(c *gin.Context) {
	e, err := h.Elections.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Election not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"election": e})
}

func (h *Handlers) UpdateElectionHandler(c *gin.Context) {
	var req electionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.EndAt.After(req.StartAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "End date must be after start date"})
		return
	}

	e, err := h.Elections.Update(c.Request.Context(), c.Param("id"), req.toModel())
	if err != nil {
		switch {
		case errors.Is(err, election.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Election not found"})
		case errors.Is(err, election.ErrAlreadyClosed):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Closed elections cannot be edited"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"election": e})
}

func (h *Handlers) StartElectionHandler(c *gin.Context) {
	e, err := h.Elections.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, election.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Election not found"})
		case errors.Is(err, election.ErrAlreadyClosed):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Closed elections cannot be restarted"})
		case errors.Is(err, election.ErrEndInPast):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot start election: end time is in the past"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"election": e})
}

// EndElectionHandler closes the election, recounting the stored ballots into
// the published tally. Repeating the call recounts again; it never
// double-counts.
func (h *Handlers) EndElectionHandler(c *gin.Context) {
	id := c.Param("id")
	tally, _, err := h.Ballots.Tally(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	e, err := h.Elections.Close(c.Request.Context(), id, tally)
	if err != nil {
		switch {
		case errors.Is(err, election.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Election not found"})
		case errors.Is(err, election.ErrNotStarted):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Election was never started"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"election": e})
}

func (h *Handlers) AdminResultsHandler(c *gin.Context) {
	e, err := h.Elections.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Election not found"})
		return
	}
	h.writeResults(c, e)
}

func (h *Handlers) DashboardHandler(c *gin.Context) {
	elections, err := h.Elections.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	var running, closed int
	var votesCast int64
	for _, e := range elections {
		switch e.Status {
		case models.StatusRunning:
			running++
		case models.StatusClosed:
			closed++
		}
		votesCast += e.TurnoutCount
	}
	voters, err := h.Roster.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"elections": len(elections),
		"running":   running,
		"closed":    closed,
		"voters":    len(voters),
		"votesCast": votesCast,
	})
}

// UploadVotersHandler imports a roster CSV with the columns
// voterId,name,rollno,dept,year,email,phone. Rows are upserted and assigned
// to the election given in the form field or the electionId column.
func (h *Handlers) UploadVotersHandler(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "CSV file is required"})
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid CSV format"})
		return
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	// The form field pins every row to one election; without it each row
	// names its own election in the electionid column.
	formElectionID := c.PostForm("electionId")
	imported := 0
	touched := map[string]bool{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid CSV format"})
			return
		}
		electionID := formElectionID
		if electionID == "" {
			electionID = field(record, "electionid")
		}

		voterID := field(record, "voterid")
		if voterID == "" {
			voterID = field(record, "rollno")
		}
		if voterID == "" {
			continue
		}
		v := &models.Voter{
			VoterID:  voterID,
			Name:     field(record, "name"),
			RollNo:   field(record, "rollno"),
			Dept:     field(record, "dept"),
			Year:     field(record, "year"),
			Email:    field(record, "email"),
			Phone:    field(record, "phone"),
			Eligible: true,
		}
		if err := h.Roster.Upsert(c.Request.Context(), v); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
			return
		}
		if electionID != "" {
			if err := h.Roster.Assign(c.Request.Context(), voterID, electionID); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
				return
			}
			touched[electionID] = true
		}
		imported++
	}

	if len(touched) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "electionId is required (in CSV column or as request parameter)"})
		return
	}
	for id := range touched {
		if err := h.syncEligibleCount(c, id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "imported": imported})
}

func (h *Handlers) syncEligibleCount(c *gin.Context, electionID string) error {
	n, err := h.Roster.RosterSize(c.Request.Context(), electionID)
	if err != nil {
		return err
	}
	return h.Elections.SetEligibleCount(c.Request.Context(), electionID, n)
}

func (h *Handlers) AddVoterHandler(c *gin.Context) {
	var req struct {
		VoterID    string `json:"voterId" binding:"required"`
		Name       string `json:"name"`
		RollNo     string `json:"rollno"`
		Dept       string `json:"dept"`
		Year       string `json:"year"`
		Email      string `json:"email"`
		Phone      string `json:"phone"`
		ElectionID string `json:"electionId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "voterId is required"})
		return
	}

	v := &models.Voter{
		VoterID:  strings.TrimSpace(req.VoterID),
		Name:     req.Name,
		RollNo:   req.RollNo,
		Dept:     req.Dept,
		Year:     req.Year,
		Email:    req.Email,
		Phone:    req.Phone,
		Eligible: true,
	}
	if err := h.Roster.Upsert(c.Request.Context(), v); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	if req.ElectionID != "" {
		if err := h.Roster.Assign(c.Request.Context(), v.VoterID, req.ElectionID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
			return
		}
		if err := h.syncEligibleCount(c, req.ElectionID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "voter": v})
}

func (h *Handlers) ListVotersHandler(c *gin.Context) {
	voters, err := h.Roster.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch voters"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"voters": voters})
}

func (h *Handlers) ElectionVotersHandler(c *gin.Context) {
	voters, err := h.Roster.ListByElection(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch voters"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"voters": voters})
}

func (h *Handlers) UpdateAssignmentsHandler(c *gin.Context) {
	voterID := c.Param("voterId")
	var req struct {
		ElectionIDs []string `json:"electionIds" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "electionIds is required"})
		return
	}

	voter, err := h.Roster.Get(c.Request.Context(), voterID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Voter not found"})
		return
	}

	touched := map[string]bool{}
	for _, id := range voter.AssignedElections {
		touched[id] = true
	}
	for _, id := range req.ElectionIDs {
		touched[id] = true
	}

	if err := h.Roster.SetAssignments(c.Request.Context(), voterID, req.ElectionIDs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	for id := range touched {
		if err := h.syncEligibleCount(c, id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) AuditLogsHandler(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)
	entries, err := h.Audit.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch audit logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
