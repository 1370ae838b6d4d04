package models

import (
	"time"

	"github.com/google/uuid"
)

// Report is a geolocated photo of an urban problem filed by a citizen.
type Report struct {
	ID               int64      `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	Problem          string     `json:"problem"` // category ID
	Description      string     `json:"description"`
	Lat              float64    `json:"lat"`
	Lng              float64    `json:"lng"`
	ImageURL         string     `json:"image_url"`
	ImageStorageKey  string     `json:"-"`
	Upvotes          int        `json:"upvotes"`
	Downvotes        int        `json:"downvotes"`
	Status           string     `json:"status"`            // new, in_progress, resolved
	ModerationStatus string     `json:"moderation_status"` // pending, approved, rejected
	ModerationReason *string    `json:"moderation_reason"`
	ModeratedBy      *uuid.UUID `json:"moderated_by"`
	ModeratedAt      *time.Time `json:"moderated_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// Populated from joins
	AuthorName  string `json:"author_name,omitempty"`
	AuthorEmail string `json:"-"`
}

// NewReport holds the fields a citizen submits.
type NewReport struct {
	UserID          uuid.UUID
	Problem         string
	Description     string
	Lat             float64
	Lng             float64
	ImageURL        string
	ImageStorageKey string
}

// ReportFilter narrows a public report listing. Empty fields do not filter.
type ReportFilter struct {
	Problem string
	Status  string
	Limit   int
}

// ReportStatusCount is one row of the report counts grouped by both status axes.
type ReportStatusCount struct {
	Status           string
	ModerationStatus string
	Count            int64
}
