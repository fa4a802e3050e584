// Package application holds the multi-section membership form and its
// gating state machine. A form lives in the session store from the first
// "start application" call until successful submission or abandonment;
// afterwards only the backend status history remains.
package application

import "time"

// Section names one gated step of the form.
type Section string

const (
	SectionPersonal  Section = "personal"
	SectionAbout     Section = "about"
	SectionBuilds    Section = "builds"
	SectionCommunity Section = "community"
)

// SectionOrder is the gating order: a section opens only once its
// predecessor is complete.
var SectionOrder = []Section{SectionPersonal, SectionAbout, SectionBuilds, SectionCommunity}

// Image is one asset attached to the builds section, still at its
// original upload location.
type Image struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Form is one applicant's in-progress submission.
type Form struct {
	OwnerID       string            `json:"ownerId"`
	Completed     map[Section]bool  `json:"completed"`
	Answers       map[string]string `json:"answers"`
	Images        []Image           `json:"images,omitempty"`
	MinecraftName string            `json:"minecraftName,omitempty"`
	MinecraftUUID string            `json:"minecraftUuid,omitempty"`
	Submitted     bool              `json:"submitted"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// NewForm creates an empty form for an owner. Used as the session store's
// factory.
func NewForm(ownerID string) *Form {
	completed := make(map[Section]bool, len(SectionOrder))
	for _, section := range SectionOrder {
		completed[section] = false
	}
	return &Form{
		OwnerID:   ownerID,
		Completed: completed,
		Answers:   make(map[string]string),
		CreatedAt: time.Now().UTC(),
	}
}

// Complete reports whether every section has passed validation.
func (f *Form) Complete() bool {
	for _, section := range SectionOrder {
		if !f.Completed[section] {
			return false
		}
	}
	return true
}
