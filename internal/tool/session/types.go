package session

import (
	"slices"
	"time"
)

// Record groups the auto-commits made while a session is active.
type Record struct {
	ID           string     `json:"id"`
	Description  string     `json:"description"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	Branch       string     `json:"branch,omitempty"`
	CommitHashes []string   `json:"commit_hashes"`
	Active       bool       `json:"active"`
}

func (r *Record) clone() *Record {
	c := *r
	c.CommitHashes = slices.Clone(r.CommitHashes)
	if c.CommitHashes == nil {
		c.CommitHashes = []string{}
	}
	if r.EndTime != nil {
		end := *r.EndTime
		c.EndTime = &end
	}
	return &c
}
