// Package accountlink gates identity verification before an application
// may start: a member proves ownership of a Minecraft account, then the
// verified link is recorded in the backend.
package accountlink

import "time"

// Purpose tags why the link was started.
type Purpose string

const (
	// PurposeApplication is a link started as the prerequisite of a
	// membership application.
	PurposeApplication Purpose = "application"
	// PurposeStandalone is a link requested on its own.
	PurposeStandalone Purpose = "standalone"
)

// LinkForm is one member's in-progress identity-link session. Same
// lifecycle shape as the application form, disjoint session keyspace.
type LinkForm struct {
	OwnerID       string    `json:"ownerId"`
	Purpose       Purpose   `json:"purpose"`
	Username      string    `json:"username,omitempty"`
	UUID          string    `json:"uuid,omitempty"`
	Verified      bool      `json:"verified"`
	ConnectionID  string    `json:"connectionId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewLinkForm is the session store factory for link sessions.
func NewLinkForm(ownerID string) *LinkForm {
	return &LinkForm{
		OwnerID:   ownerID,
		Purpose:   PurposeStandalone,
		CreatedAt: time.Now().UTC(),
	}
}
