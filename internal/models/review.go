// Package models holds the records exchanged with the job-board backend and
// the review state machine for job postings.
//
// Review graph:
//
//	pending_review ──► active
//	      │              ▲
//	      └──► rejected ─┘ (restore)
//
// active is terminal for the review workflow; rejected stays reversible.
package models

import "fmt"

// Status values mirror the backend's job status field.
type Status string

const (
	StatusPendingReview Status = "pending_review"
	StatusActive        Status = "active"
	StatusRejected      Status = "rejected"
)

// Decision is an admin verdict on a job in the review queue.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

var validTransitions = map[Status][]Status{
	StatusPendingReview: {StatusActive, StatusRejected},
	StatusRejected:      {StatusActive},
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusPendingReview, StatusActive, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

func ParseDecision(s string) (Decision, error) {
	d := Decision(s)
	switch d {
	case DecisionAccept, DecisionReject:
		return d, nil
	}
	return "", fmt.Errorf("unknown decision %q", s)
}

// Target is the status a decision moves a pending job to.
func (d Decision) Target() Status {
	if d == DecisionAccept {
		return StatusActive
	}
	return StatusRejected
}

// CanTransition reports whether from → to is allowed.
func CanTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// RemovesFromFeed reports whether a feedback value hides the job from the
// public feed.
func RemovesFromFeed(t *Thumb) bool {
	return t != nil && *t == ThumbDown
}
