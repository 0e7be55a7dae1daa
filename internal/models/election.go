package models

import "time"

const (
	StatusDraft   = "draft"
	StatusRunning = "running"
	StatusClosed  = "closed"
)

type Candidate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Election struct {
	ID                 string           `json:"id" mapstructure:"id"`
	Title              string           `json:"title" mapstructure:"title"`
	Description        string           `json:"description,omitempty" mapstructure:"description"`
	Candidates         []Candidate      `json:"candidates,omitempty" mapstructure:"-"`
	StartAt            time.Time        `json:"start_at" mapstructure:"-"`
	EndAt              time.Time        `json:"end_at" mapstructure:"-"`
	Status             string           `json:"status" mapstructure:"status"`
	EligibleVoterCount int64            `json:"eligible_voter_count" mapstructure:"-"`
	TurnoutCount       int64            `json:"turnout_count" mapstructure:"-"`
	ResultsPublished   bool             `json:"results_published" mapstructure:"-"`
	Tally              map[string]int64 `json:"tally,omitempty" mapstructure:"-"`
	CreatedAt          time.Time        `json:"created_at,omitempty" mapstructure:"-"`
}

// ActiveAt reports whether the election accepts votes at the given instant:
// status running and inside the [StartAt, EndAt] window.
func (e *Election) ActiveAt(now time.Time) bool {
	if e.Status != StatusRunning {
		return false
	}
	if e.StartAt.IsZero() || e.EndAt.IsZero() {
		return false
	}
	return !now.Before(e.StartAt) && !now.After(e.EndAt)
}

func (e *Election) HasCandidate(candidateID string) bool {
	for _, c := range e.Candidates {
		if c.ID == candidateID {
			return true
		}
	}
	return false
}
