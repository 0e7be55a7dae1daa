package models

import "time"

type Voter struct {
	VoterID           string    `json:"voter_id" mapstructure:"voter_id"`
	Name              string    `json:"name,omitempty" mapstructure:"name"`
	RollNo            string    `json:"rollno,omitempty" mapstructure:"rollno"`
	Dept              string    `json:"dept,omitempty" mapstructure:"dept"`
	Year              string    `json:"year,omitempty" mapstructure:"year"`
	Email             string    `json:"email,omitempty" mapstructure:"email"`
	Phone             string    `json:"phone,omitempty" mapstructure:"phone"`
	Eligible          bool      `json:"eligible" mapstructure:"-"`
	AssignedElections []string  `json:"assigned_elections,omitempty" mapstructure:"-"`
	CreatedAt         time.Time `json:"created_at,omitempty" mapstructure:"-"`
}

func (v *Voter) AssignedTo(electionID string) bool {
	for _, id := range v.AssignedElections {
		if id == electionID {
			return true
		}
	}
	return false
}
