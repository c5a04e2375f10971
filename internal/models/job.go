package models

import (
	"strings"
	"time"
)

type Thumb string

const (
	ThumbUp   Thumb = "up"
	ThumbDown Thumb = "down"
)

type Job struct {
	ID              string    `json:"_id"`
	JobID           string    `json:"JobID"`
	Title           string    `json:"JobTitle"`
	Company         string    `json:"Company"`
	Location        string    `json:"Location"`
	Department      string    `json:"Department"`
	Description     string    `json:"Description,omitempty"`
	ApplicationURL  string    `json:"ApplicationURL"`
	ContractType    string    `json:"ContractType"`
	ExperienceLevel string    `json:"ExperienceLevel"`
	Compensation    string    `json:"Compensation,omitempty"`
	SourceSite      string    `json:"sourceSite,omitempty"`
	PostedDate      *string   `json:"PostedDate"`
	GermanRequired  *bool     `json:"GermanRequired,omitempty"`
	ConfidenceScore float64   `json:"ConfidenceScore,omitempty"`
	Status          Status    `json:"Status,omitempty"`
	ThumbStatus     *Thumb    `json:"thumbStatus,omitempty"`
	ScrapedAt       string    `json:"scrapedAt,omitempty"`
	FinalDecision   string    `json:"FinalDecision,omitempty"`
	Evidence        *Evidence `json:"Evidence,omitempty"`
}

// Evidence is the classifier's reasoning attached to test-log entries
type Evidence struct {
	LocationReason string `json:"location_reason"`
	GermanReason   string `json:"german_reason"`
}

func (j Job) Key() string {
	return j.ID
}

// Posted parses PostedDate. The zero time is returned when the date is
// missing or unparseable.
func (j Job) Posted() time.Time {
	if j.PostedDate == nil {
		return time.Time{}
	}
	s := strings.TrimSpace(*j.PostedDate)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (j Job) PostedLabel() string {
	if j.PostedDate == nil || *j.PostedDate == "" {
		return "N/A"
	}
	t := j.Posted()
	if t.IsZero() {
		return "Invalid Date"
	}
	return t.Format("Jan 2, 2006")
}

// EnglishFriendly reports whether the job is known not to require German.
// A missing flag counts as English-friendly, as it does in the public feed.
func (j Job) EnglishFriendly() bool {
	return j.GermanRequired == nil || !*j.GermanRequired
}

// ConfidencePercent normalises the classifier score, which the backend sends
// either as a 0-1 fraction or as a 0-100 percentage.
func (j Job) ConfidencePercent() int {
	score := j.ConfidenceScore
	if score <= 1 {
		score *= 100
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(score + 0.5)
}

// NewJob is the manual "add job" form
type NewJob struct {
	Title           string `json:"JobTitle"`
	ApplicationURL  string `json:"ApplicationURL"`
	Company         string `json:"Company"`
	Location        string `json:"Location"`
	Department      string `json:"Department"`
	ContractType    string `json:"ContractType"`
	ExperienceLevel string `json:"ExperienceLevel"`
	PostedDate      string `json:"PostedDate"`
	Description     string `json:"Description"`
	GermanRequired  bool   `json:"GermanRequired"`
}

// DailyStats is the admin pipeline summary
type DailyStats struct {
	ConnectedSources  int `json:"connectedSources"`
	JobsScraped       int `json:"jobsScraped"`
	JobsSentToAI      int `json:"jobsSentToAI"`
	JobsPendingReview int `json:"jobsPendingReview"`
	JobsPublished     int `json:"jobsPublished"`
}
