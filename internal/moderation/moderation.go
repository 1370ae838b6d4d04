// Package moderation holds the two status axes of a report: the moderation
// decision that controls public visibility and the operational status that
// tracks resolution.
package moderation

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// MaxReasonLength is the longest moderation reason accepted, in characters.
const MaxReasonLength = 500

var (
	ErrInvalidAction = errors.New("invalid moderation action")
	ErrReasonEmpty   = errors.New("moderation reason is required")
	ErrReasonTooLong = errors.New("moderation reason must be at most 500 characters")
	ErrInvalidStatus = errors.New("invalid report status")
)

// Moderation statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Operational statuses.
const (
	StatusNew        = "new"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
)

// Action is an administrator moderation decision.
type Action string

const (
	Approve Action = "approve"
	Reject  Action = "reject"
)

// ParseAction parses an action name.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.TrimSpace(s)); a {
	case Approve, Reject:
		return a, nil
	default:
		return "", ErrInvalidAction
	}
}

// TargetStatus is the moderation status the action moves a report to.
// Both actions apply from any current status.
func (a Action) TargetStatus() string {
	if a == Approve {
		return StatusApproved
	}
	return StatusRejected
}

// ValidateReason trims the reason and checks it is non-empty and within
// MaxReasonLength characters.
func ValidateReason(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrReasonEmpty
	}
	if utf8.RuneCountInString(s) > MaxReasonLength {
		return "", ErrReasonTooLong
	}
	return s, nil
}

// ParseStatus parses an operational status. Any status may be assigned from any other.
func ParseStatus(s string) (string, error) {
	switch s = strings.TrimSpace(s); s {
	case StatusNew, StatusInProgress, StatusResolved:
		return s, nil
	default:
		return "", ErrInvalidStatus
	}
}

// ParseModerationStatus parses a moderation status filter value.
func ParseModerationStatus(s string) (string, error) {
	switch s = strings.TrimSpace(s); s {
	case StatusPending, StatusApproved, StatusRejected:
		return s, nil
	default:
		return "", ErrInvalidStatus
	}
}

// IsPubliclyVisible reports whether a report with the given moderation status
// may appear in public listings.
func IsPubliclyVisible(moderationStatus string) bool {
	return moderationStatus == StatusApproved
}

// CanView reports whether a viewer may read a single report. Approved reports
// are public; others are visible to administrators and to their author.
func CanView(moderationStatus, ownerID, viewerID string, viewerIsAdmin bool) bool {
	if IsPubliclyVisible(moderationStatus) || viewerIsAdmin {
		return true
	}
	return viewerID != "" && viewerID == ownerID
}
