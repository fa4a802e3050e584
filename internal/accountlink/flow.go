// internal/accountlink/flow.go
package accountlink

import (
	"context"
	"fmt"

	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/backend"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/errors"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/logger"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/session"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/verify"
)

// Verifier is the external identity-proofing contract.
type Verifier interface {
	ValidateUsername(ctx context.Context, name string) (*verify.Identity, error)
	Authorize(ctx context.Context, name, code string) error
}

// Backend is the slice of the backend API the link flow needs.
type Backend interface {
	GetConnectionByName(ctx context.Context, minecraftName string) (*backend.Connection, error)
	CreateConnection(ctx context.Context, conn *backend.Connection) (*backend.Connection, error)
}

// Flow drives the two-step identity link: prove the username resolves,
// then confirm ownership with an in-game code and record the connection.
type Flow struct {
	sessions *session.Store[*LinkForm]
	verifier Verifier
	backend  Backend
	cache    *IdentityCache
	log      logger.Logger
}

func NewFlow(sessions *session.Store[*LinkForm], verifier Verifier, be Backend, cache *IdentityCache, log logger.Logger) *Flow {
	return &Flow{
		sessions: sessions,
		verifier: verifier,
		backend:  be,
		cache:    cache,
		log:      log,
	}
}

// Sessions exposes the underlying store for gauges and composition.
func (fl *Flow) Sessions() *session.Store[*LinkForm] { return fl.sessions }

// Begin starts (or resumes) a link session for an owner.
func (fl *Flow) Begin(ownerID string, purpose Purpose) *LinkForm {
	form := fl.sessions.GetOrCreate(ownerID)
	form.Purpose = purpose
	return form
}

// SubmitUsername resolves the claimed username, rejects names linked to a
// different owner, and memoizes the verified identity for confirmation.
// A still-fresh memo for the same name skips the round-trip to the
// verification service.
func (fl *Flow) SubmitUsername(ctx context.Context, ownerID, name string) error {
	return fl.sessions.Update(ownerID, func(form *LinkForm) error {
		identity, cached, err := fl.cache.Get(ctx, ownerID)
		if err != nil {
			fl.log.Warn("identity cache read failed, falling back to verification service", map[string]interface{}{
				"ownerId": ownerID,
				"error":   err.Error(),
			})
			cached = false
		}

		if !cached || identity.Name != name {
			identity, err = fl.verifier.ValidateUsername(ctx, name)
			if err != nil {
				if errors.IsNotFound(err) {
					return errors.NewValidationFailed([]string{fmt.Sprintf("no Minecraft account named %q exists", name)})
				}
				return err
			}
		}

		existing, err := fl.backend.GetConnectionByName(ctx, identity.Name)
		switch {
		case err == nil:
			if existing.OwnerID != ownerID {
				return errors.NewConflict(
					fmt.Sprintf("the Minecraft account %s is already linked to another member", identity.Name),
					"connection owned by "+existing.OwnerID,
				)
			}
			// Relinking their own account is harmless.
		case errors.IsNotFound(err):
		default:
			return err
		}

		if err := fl.cache.Put(ctx, ownerID, *identity); err != nil {
			fl.log.Warn("identity cache write failed", map[string]interface{}{
				"ownerId": ownerID,
				"error":   err.Error(),
			})
		}

		form.Username = identity.Name
		form.UUID = identity.UUID
		form.Verified = true
		return nil
	})
}

// Confirm checks the in-game code with the verification service, records
// the connection in the backend, and resolves the session. The session is
// removed only after the connection is durably created.
func (fl *Flow) Confirm(ctx context.Context, ownerID, code string) (*backend.Connection, error) {
	form, ok := fl.sessions.Get(ownerID)
	if !ok {
		return nil, errors.NewNotFound("account-link session")
	}
	if !form.Verified || form.Username == "" {
		return nil, errors.NewIncomplete("submit a username before confirming")
	}

	if err := fl.verifier.Authorize(ctx, form.Username, code); err != nil {
		return nil, err
	}

	created, err := fl.backend.CreateConnection(ctx, &backend.Connection{
		OwnerID:       ownerID,
		MinecraftName: form.Username,
		MinecraftUUID: form.UUID,
	})
	if err != nil {
		return nil, err
	}

	if err := fl.cache.Delete(ctx, ownerID); err != nil {
		fl.log.Warn("identity cache delete failed", map[string]interface{}{
			"ownerId": ownerID,
			"error":   err.Error(),
		})
	}
	fl.sessions.Remove(ownerID)

	fl.log.Info("account link recorded", map[string]interface{}{
		"ownerId":       ownerID,
		"minecraftName": form.Username,
		"connectionId":  created.ID,
	})
	return created, nil
}

// Abandon drops an in-progress link session.
func (fl *Flow) Abandon(ownerID string) bool {
	return fl.sessions.Remove(ownerID)
}
