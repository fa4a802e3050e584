// internal/backend/models.go
package backend

import (
	"sort"
	"time"
)

// StatusLabel enumerates the application audit-trail labels.
type StatusLabel string

const (
	StatusDraft             StatusLabel = "Draft"
	StatusSubmissionPending StatusLabel = "SubmissionPending"
	StatusUnderReview       StatusLabel = "UnderReview"
	StatusApproved          StatusLabel = "Approved"
	StatusRejected          StatusLabel = "Rejected"
)

// Terminal reports whether the label ends the review lifecycle.
func (l StatusLabel) Terminal() bool {
	return l == StatusApproved || l == StatusRejected
}

// User is the backend's view of a community member.
type User struct {
	ID          string    `json:"id"`
	ChatUserID  string    `json:"chatUserId"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Connection links a chat identity to a Minecraft account.
type Connection struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"ownerId"`
	MinecraftName string    `json:"minecraftName"`
	MinecraftUUID string    `json:"minecraftUuid"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Application is the backend record of record for one submission.
// Mutated only by appending status entries.
type Application struct {
	ID            string            `json:"id"`
	OwnerID       string            `json:"ownerId"`
	MinecraftName string            `json:"minecraftName"`
	Answers       map[string]string `json:"answers"`
	Images        []Image           `json:"images,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// Status is one append-only audit-trail entry.
type Status struct {
	Label     StatusLabel `json:"label"`
	Message   string      `json:"message,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Image is one submitted asset record. URL starts as the applicant's
// upload location and is repointed at the durable review-channel copy
// during hand-off.
type Image struct {
	ID            string `json:"id"`
	ApplicationID string `json:"applicationId,omitempty"`
	Name          string `json:"name"`
	URL           string `json:"url"`
	ContentType   string `json:"contentType,omitempty"`
}

// CurrentStatus returns the most recent entry by timestamp, or nil for an
// empty history.
func CurrentStatus(history []Status) *Status {
	if len(history) == 0 {
		return nil
	}
	sorted := make([]Status, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return &sorted[len(sorted)-1]
}
