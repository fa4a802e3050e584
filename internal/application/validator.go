// internal/application/validator.go
package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/backend"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/config"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/errors"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/logger"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/metrics"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/validation"
)

// ConnectionChecker is the slice of the backend API the personal section
// needs for its already-linked conflict check.
type ConnectionChecker interface {
	GetConnectionByName(ctx context.Context, minecraftName string) (*backend.Connection, error)
}

// PersonalInput carries the personal-information section fields.
type PersonalInput struct {
	Name          string `json:"name"`
	Age           int    `json:"age"`
	MinecraftName string `json:"minecraftName"`
	Timezone      string `json:"timezone,omitempty"`
}

// AboutInput carries the free-form questions of the about section.
type AboutInput struct {
	AboutYou   string `json:"aboutYou"`
	WhyJoin    string `json:"whyJoin"`
	Experience string `json:"experience"`
}

// BuildsInput carries the build-portfolio section: uploaded screenshots
// plus an optional note.
type BuildsInput struct {
	Note   string  `json:"note,omitempty"`
	Images []Image `json:"images"`
}

// CommunityInput carries the final section.
type CommunityInput struct {
	Referral      string `json:"referral,omitempty"`
	RulesAccepted bool   `json:"rulesAccepted"`
}

// Validator revalidates each section's fields against the typed
// constraints from configuration and flips the section's completion bit.
// A failed revalidation of a previously complete section resets it to
// incomplete.
type Validator struct {
	cfg     config.ValidationConfig
	backend ConnectionChecker
	log     logger.Logger
}

func NewValidator(cfg config.ValidationConfig, checker ConnectionChecker, log logger.Logger) *Validator {
	return &Validator{cfg: cfg, backend: checker, log: log}
}

// SubmitPersonal validates and stores the personal section. Beyond field
// constraints it performs the backend round-trip check that the claimed
// Minecraft name is not already linked to a different owner.
func (v *Validator) SubmitPersonal(ctx context.Context, f *Form, in PersonalInput) error {
	if err := frozen(f); err != nil {
		return err
	}

	payload := map[string]interface{}{
		"name":          in.Name,
		"age":           in.Age,
		"minecraftName": in.MinecraftName,
	}
	if in.Timezone != "" {
		payload["timezone"] = in.Timezone
	}

	if err := v.checkSchema(f, SectionPersonal, personalSchema(v.cfg), payload); err != nil {
		return err
	}

	conn, err := v.backend.GetConnectionByName(ctx, in.MinecraftName)
	switch {
	case err == nil:
		if conn.OwnerID != f.OwnerID {
			f.Completed[SectionPersonal] = false
			metrics.SectionsValidated.WithLabelValues(string(SectionPersonal), "conflict").Inc()
			return errors.NewConflict(
				fmt.Sprintf("the Minecraft account %s is already linked to another member", in.MinecraftName),
				"connection owned by "+conn.OwnerID,
			)
		}
		f.MinecraftUUID = conn.MinecraftUUID
	case errors.IsNotFound(err):
		// Unlinked name: the account-link flow will claim it later.
	default:
		f.Completed[SectionPersonal] = false
		return err
	}

	f.Answers["name"] = in.Name
	f.Answers["age"] = fmt.Sprintf("%d", in.Age)
	f.Answers["timezone"] = in.Timezone
	f.MinecraftName = in.MinecraftName
	f.Completed[SectionPersonal] = true
	metrics.SectionsValidated.WithLabelValues(string(SectionPersonal), "success").Inc()
	return nil
}

// SubmitAbout validates and stores the free-form answers.
func (v *Validator) SubmitAbout(ctx context.Context, f *Form, in AboutInput) error {
	if err := frozen(f); err != nil {
		return err
	}

	payload := map[string]interface{}{
		"aboutYou":   in.AboutYou,
		"whyJoin":    in.WhyJoin,
		"experience": in.Experience,
	}

	if err := v.checkSchema(f, SectionAbout, aboutSchema(v.cfg), payload); err != nil {
		return err
	}

	f.Answers["about_you"] = in.AboutYou
	f.Answers["why_join"] = in.WhyJoin
	f.Answers["experience"] = in.Experience
	f.Completed[SectionAbout] = true
	metrics.SectionsValidated.WithLabelValues(string(SectionAbout), "success").Inc()
	return nil
}

// SubmitBuilds validates and stores the portfolio. Image constraints
// (count, content type, size) are not expressible as payload schema and
// are checked directly.
func (v *Validator) SubmitBuilds(ctx context.Context, f *Form, in BuildsInput) error {
	if err := frozen(f); err != nil {
		return err
	}

	payload := map[string]interface{}{}
	if in.Note != "" {
		payload["note"] = in.Note
	}
	if err := v.checkSchema(f, SectionBuilds, buildsSchema(v.cfg), payload); err != nil {
		return err
	}

	problems := v.checkImages(in.Images)
	if len(problems) > 0 {
		f.Completed[SectionBuilds] = false
		metrics.SectionsValidated.WithLabelValues(string(SectionBuilds), "failure").Inc()
		return errors.NewValidationFailed(problems)
	}

	f.Answers["builds_note"] = in.Note
	f.Images = in.Images
	f.Completed[SectionBuilds] = true
	metrics.SectionsValidated.WithLabelValues(string(SectionBuilds), "success").Inc()
	return nil
}

// SubmitCommunity validates and stores the final section.
func (v *Validator) SubmitCommunity(ctx context.Context, f *Form, in CommunityInput) error {
	if err := frozen(f); err != nil {
		return err
	}

	payload := map[string]interface{}{"rulesAccepted": in.RulesAccepted}
	if in.Referral != "" {
		payload["referral"] = in.Referral
	}
	if err := v.checkSchema(f, SectionCommunity, communitySchema(v.cfg), payload); err != nil {
		return err
	}

	if !in.RulesAccepted {
		f.Completed[SectionCommunity] = false
		metrics.SectionsValidated.WithLabelValues(string(SectionCommunity), "failure").Inc()
		return errors.NewValidationFailed([]string{"you must accept the community rules to apply"})
	}

	f.Answers["referral"] = in.Referral
	f.Completed[SectionCommunity] = true
	metrics.SectionsValidated.WithLabelValues(string(SectionCommunity), "success").Inc()
	return nil
}

// checkSchema runs the JSON-schema pass for one section and resets the
// completion bit on failure.
func (v *Validator) checkSchema(f *Form, section Section, schema string, payload map[string]interface{}) error {
	result, err := validation.Validate(schema, payload, v.cfg.MaxErrors)
	if err != nil {
		return errors.NewInternal(err)
	}
	if !result.Valid {
		f.Completed[section] = false
		metrics.SectionsValidated.WithLabelValues(string(section), "failure").Inc()
		return errors.NewValidationFailed(result.Problems)
	}
	return nil
}

func (v *Validator) checkImages(images []Image) []string {
	var problems []string

	if len(images) < v.cfg.Image.MinCount {
		problems = append(problems, fmt.Sprintf("at least %d build screenshot(s) required, got %d", v.cfg.Image.MinCount, len(images)))
	}
	if len(images) > v.cfg.Image.MaxCount {
		problems = append(problems, fmt.Sprintf("at most %d build screenshots allowed, got %d", v.cfg.Image.MaxCount, len(images)))
	}

	for _, img := range images {
		if len(problems) >= v.cfg.MaxErrors {
			break
		}
		if !v.typeAllowed(img.ContentType) {
			problems = append(problems, fmt.Sprintf("%s: file type %s not allowed (use %s)",
				img.Name, img.ContentType, strings.Join(v.cfg.Image.AllowedTypes, ", ")))
		}
		if v.cfg.Image.MaxBytes > 0 && img.Size > v.cfg.Image.MaxBytes {
			problems = append(problems, fmt.Sprintf("%s: file exceeds the %d byte limit", img.Name, v.cfg.Image.MaxBytes))
		}
		if img.URL == "" {
			problems = append(problems, fmt.Sprintf("%s: upload location missing", img.Name))
		}
	}

	if len(problems) > v.cfg.MaxErrors {
		problems = problems[:v.cfg.MaxErrors]
	}
	return problems
}

func (v *Validator) typeAllowed(contentType string) bool {
	for _, allowed := range v.cfg.Image.AllowedTypes {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}

// frozen short-circuits every section handler once the pipeline marked
// the form submitted.
func frozen(f *Form) error {
	if f.Submitted {
		return errors.NewConflict("application already submitted", "form is frozen after submission")
	}
	return nil
}
