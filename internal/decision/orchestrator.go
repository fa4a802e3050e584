// Package decision executes the side effects of a reviewer's verdict:
// durable status append first, then audit thread, applicant notification
// and (on accept) the public notice and role grant. Once the status entry
// lands there is no rollback; later failures surface to the reviewer as a
// recoverable-by-human state.
package decision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/backend"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/config"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/errors"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/logger"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/metrics"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/notify"
)

// Backend is the slice of the backend API the orchestrator needs.
type Backend interface {
	GetUser(ctx context.Context, ownerID string) (*backend.User, error)
	GetApplication(ctx context.Context, applicationID string) (*backend.Application, error)
	ListStatuses(ctx context.Context, applicationID string) ([]backend.Status, error)
	AddStatus(ctx context.Context, applicationID string, status backend.Status) error
}

// Chat is the slice of the chat gateway the orchestrator needs.
type Chat interface {
	SendMessage(ctx context.Context, channelID, content string) (string, error)
	CreateThread(ctx context.Context, channelID, name string) (string, error)
	SendDirectMessage(ctx context.Context, userID, content string) (string, error)
	GrantRole(ctx context.Context, userID, roleID string) error
}

// Mailer copies the decision summary to the staff list; nil disables it.
type Mailer interface {
	SendDecisionMail(ctx context.Context, subject, body string) error
}

// Request carries one reviewer verdict. Override must be set explicitly
// to re-decide an application that already carries a terminal status.
type Request struct {
	ApplicationID string
	ReviewerID    string
	Text          string // comments on accept, reason on reject
	Override      bool
}

// Orchestrator fans a verdict out across the backend, the chat platform
// and the optional staff mail.
type Orchestrator struct {
	backend    Backend
	chat       Chat
	dispatcher *notify.Dispatcher
	mailer     Mailer
	cfg        config.DecisionConfig
	log        logger.Logger

	// sleep is swappable for tests.
	sleep func(time.Duration)
}

func New(be Backend, ch Chat, dispatcher *notify.Dispatcher, mailer Mailer, cfg config.DecisionConfig, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		backend:    be,
		chat:       ch,
		dispatcher: dispatcher,
		mailer:     mailer,
		cfg:        cfg,
		log:        log,
		sleep:      time.Sleep,
	}
}

// Accept records approval and runs the acceptance side effects.
func (o *Orchestrator) Accept(ctx context.Context, req Request) (string, error) {
	return o.decide(ctx, req, backend.StatusApproved)
}

// Reject records rejection and notifies the applicant.
func (o *Orchestrator) Reject(ctx context.Context, req Request) (string, error) {
	return o.decide(ctx, req, backend.StatusRejected)
}

func (o *Orchestrator) decide(ctx context.Context, req Request, verdict backend.StatusLabel) (string, error) {
	verdictName := strings.ToLower(string(verdict))

	// Nothing has been sent yet, so every failure up to the status append
	// aborts cleanly.
	app, err := o.backend.GetApplication(ctx, req.ApplicationID)
	if err != nil {
		metrics.DecisionsTotal.WithLabelValues(verdictName, "failure").Inc()
		return "", err
	}

	applicant, err := o.backend.GetUser(ctx, app.OwnerID)
	if err != nil {
		metrics.DecisionsTotal.WithLabelValues(verdictName, "failure").Inc()
		return "", err
	}

	history, err := o.backend.ListStatuses(ctx, req.ApplicationID)
	if err != nil {
		metrics.DecisionsTotal.WithLabelValues(verdictName, "failure").Inc()
		return "", err
	}
	if current := backend.CurrentStatus(history); current != nil && current.Label.Terminal() && !req.Override {
		metrics.DecisionsTotal.WithLabelValues(verdictName, "conflict").Inc()
		return "", errors.NewConflict(
			fmt.Sprintf("application %s was already decided: %s", req.ApplicationID, current.Label),
			"pass override to re-decide",
		)
	}

	// A failure here means nothing was sent, so a decision can never be
	// delivered without being recorded.
	if err := o.backend.AddStatus(ctx, req.ApplicationID, backend.Status{
		Label:   verdict,
		Message: req.Text,
	}); err != nil {
		metrics.DecisionsTotal.WithLabelValues(verdictName, "failure").Inc()
		return "", err
	}

	threadID, err := o.chat.CreateThread(ctx, o.cfg.StorageChannelID,
		fmt.Sprintf("application-%s-%s", req.ApplicationID, verdictName))
	if err != nil {
		metrics.DecisionsTotal.WithLabelValues(verdictName, "partial").Inc()
		return "", errors.NewUpstreamFailure("create-audit-thread", err).
			WithMetadata("applicationId", req.ApplicationID).
			WithMetadata("decisionRecorded", true)
	}

	if _, err := o.chat.SendMessage(ctx, threadID, summary(app, applicant, verdict, req.Text)); err != nil {
		metrics.DecisionsTotal.WithLabelValues(verdictName, "partial").Inc()
		return threadID, errors.NewUpstreamFailure("post-audit-summary", err).
			WithMetadata("applicationId", req.ApplicationID).
			WithMetadata("decisionRecorded", true)
	}

	o.dispatcher.Go("audit-admin-note", func(ctx context.Context) error {
		_, err := o.chat.SendMessage(ctx, threadID,
			fmt.Sprintf("Decided by <@%s>. React here with any follow-up notes.", req.ReviewerID))
		return err
	})

	if o.mailer != nil {
		o.dispatcher.Go("staff-decision-mail", func(ctx context.Context) error {
			return o.mailer.SendDecisionMail(ctx,
				fmt.Sprintf("Application %s %s", req.ApplicationID, verdictName),
				summary(app, applicant, verdict, req.Text))
		})
	}

	var tailErrs []string

	// Thread and DM land in different surfaces; the delay keeps the DM
	// after the thread on the platform's delivery timeline.
	if verdict == backend.StatusApproved {
		o.sleep(config.GetDuration(o.cfg.DMDelay))
	}
	if _, err := o.chat.SendDirectMessage(ctx, applicant.ChatUserID, o.applicantNotice(app, verdict, req.Text, threadID)); err != nil {
		tailErrs = append(tailErrs, fmt.Sprintf("applicant notification: %s", err.Error()))
	}

	if verdict == backend.StatusApproved {
		if _, err := o.chat.SendMessage(ctx, o.cfg.AnnounceChannelID,
			fmt.Sprintf("🎉 Welcome %s — application %s accepted!", app.MinecraftName, req.ApplicationID)); err != nil {
			tailErrs = append(tailErrs, fmt.Sprintf("public notice: %s", err.Error()))
		}
		if err := o.chat.GrantRole(ctx, applicant.ChatUserID, o.cfg.MemberRoleID); err != nil {
			tailErrs = append(tailErrs, fmt.Sprintf("role grant: %s", err.Error()))
		}
	}

	if len(tailErrs) > 0 {
		metrics.DecisionsTotal.WithLabelValues(verdictName, "partial").Inc()
		o.log.Warn("decision recorded with partial side-effect failures", map[string]interface{}{
			"applicationId": req.ApplicationID,
			"verdict":       verdictName,
			"failures":      tailErrs,
		})
		return threadID, errors.NewUpstreamFailure("decision side effects",
			fmt.Errorf("%s", strings.Join(tailErrs, "; "))).
			WithMetadata("applicationId", req.ApplicationID).
			WithMetadata("decisionRecorded", true)
	}

	metrics.DecisionsTotal.WithLabelValues(verdictName, "success").Inc()
	o.log.Info("decision executed", map[string]interface{}{
		"applicationId": req.ApplicationID,
		"verdict":       verdictName,
		"threadId":      threadID,
		"reviewerId":    req.ReviewerID,
	})
	return threadID, nil
}

func (o *Orchestrator) applicantNotice(app *backend.Application, verdict backend.StatusLabel, text, threadID string) string {
	if verdict == backend.StatusApproved {
		return fmt.Sprintf(
			"Your application `%s` was **accepted**! %s\nThe review record lives in <#%s>.",
			app.ID, text, threadID)
	}
	return fmt.Sprintf(
		"Your application `%s` was **not accepted** this time.\nReason: %s\nThe review record lives in <#%s>. You are welcome to apply again.",
		app.ID, text, threadID)
}

func summary(app *backend.Application, applicant *backend.User, verdict backend.StatusLabel, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Application %s** — %s\n", app.ID, verdict)
	fmt.Fprintf(&b, "Applicant: %s (<@%s>)\n", applicant.DisplayName, applicant.ChatUserID)
	fmt.Fprintf(&b, "Minecraft: %s\n", app.MinecraftName)
	for _, key := range []string{"name", "age", "timezone", "about_you", "why_join", "experience", "builds_note", "referral"} {
		if val := app.Answers[key]; val != "" {
			fmt.Fprintf(&b, "• %s: %s\n", strings.ReplaceAll(key, "_", " "), val)
		}
	}
	if text != "" {
		fmt.Fprintf(&b, "Reviewer: %s\n", text)
	}
	return b.String()
}
