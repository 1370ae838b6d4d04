// Package voting implements the per-user vote state machine for reports.
// Persisting a transition is the job of internal/db, which applies the ledger
// row change and the aggregate deltas in one transaction.
package voting

import (
	"errors"
	"strings"
)

// ErrInvalidDirection is returned for vote tokens other than up, down or none.
var ErrInvalidDirection = errors.New("invalid vote direction")

// Direction is the vote a user asks for.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
	None Direction = "none"
)

// Value is the ledger value stored for a (user, report) pair. Zero means no row.
type Value int

const (
	Absent   Value = 0
	Positive Value = 1
	Negative Value = -1
)

// ParseDirection parses a vote token. A nil token is treated as none.
func ParseDirection(raw *string) (Direction, error) {
	if raw == nil {
		return None, nil
	}
	switch d := Direction(strings.TrimSpace(*raw)); d {
	case Up, Down, None:
		return d, nil
	default:
		return "", ErrInvalidDirection
	}
}

// Value returns the ledger value a direction moves to.
func (d Direction) Value() Value {
	switch d {
	case Up:
		return Positive
	case Down:
		return Negative
	default:
		return Absent
	}
}

// Direction returns the direction a ledger value represents.
func (v Value) Direction() Direction {
	switch v {
	case Positive:
		return Up
	case Negative:
		return Down
	default:
		return None
	}
}

// Transition returns the next ledger value for a vote and the deltas to apply
// to the report's upvote and downvote counters. Re-voting the current
// direction is a no-op.
func Transition(current Value, dir Direction) (next Value, deltaUp, deltaDown int) {
	next = dir.Value()
	if next == current {
		return current, 0, 0
	}
	switch current {
	case Positive:
		deltaUp--
	case Negative:
		deltaDown--
	}
	switch next {
	case Positive:
		deltaUp++
	case Negative:
		deltaDown++
	}
	return next, deltaUp, deltaDown
}

// Tally is the aggregate returned after a vote, with the caller's current vote.
type Tally struct {
	Upvotes   int     `json:"upvotes"`
	Downvotes int     `json:"downvotes"`
	UserVote  *string `json:"user_vote"`
}

// UserVoteToken returns the JSON token for a ledger value, nil when absent.
func UserVoteToken(v Value) *string {
	if v == Absent {
		return nil
	}
	s := string(v.Direction())
	return &s
}
