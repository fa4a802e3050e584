// Package pipeline turns a completed form into a backend application
// record and hands it to the human review queue.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/application"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/backend"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/chat"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/config"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/errors"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/logger"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/metrics"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/session"
)

// maxConcurrentDownloads caps outbound bandwidth and file descriptors
// during asset transfer, not correctness.
const maxConcurrentDownloads = 4

// Backend is the slice of the backend API the pipeline needs.
type Backend interface {
	CreateApplication(ctx context.Context, app *backend.Application) (string, error)
	GetApplication(ctx context.Context, applicationID string) (*backend.Application, error)
	AddStatus(ctx context.Context, applicationID string, status backend.Status) error
	ListImages(ctx context.Context, applicationID string) ([]backend.Image, error)
	UpdateImageURL(ctx context.Context, imageID, newURL string) error
}

// Chat is the slice of the chat gateway the pipeline needs.
type Chat interface {
	SendMessage(ctx context.Context, channelID, content string) (string, error)
	SendFiles(ctx context.Context, channelID, content string, files []chat.File) (*chat.SentMessage, error)
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
}

// Alerter publishes operator alerts; nil disables them.
type Alerter interface {
	PublishAlert(ctx context.Context, subject, message string) error
}

// Pipeline validates, persists and hands off completed applications.
type Pipeline struct {
	sessions   *session.Store[*application.Form]
	backend    Backend
	chat       Chat
	alerter    Alerter
	review     config.ReviewConfig
	downloader *http.Client
	log        logger.Logger

	// sleep is swappable for tests.
	sleep func(time.Duration)
}

func New(sessions *session.Store[*application.Form], be Backend, ch Chat, alerter Alerter, review config.ReviewConfig, log logger.Logger) *Pipeline {
	return &Pipeline{
		sessions:   sessions,
		backend:    be,
		chat:       ch,
		alerter:    alerter,
		review:     review,
		downloader: &http.Client{Timeout: 60 * time.Second},
		log:        log,
		sleep:      time.Sleep,
	}
}

// Sessions exposes the application session store for composition.
func (p *Pipeline) Sessions() *session.Store[*application.Form] { return p.sessions }

// Submit persists the owner's completed form. The whole check-persist-
// resolve sequence runs under the owner's session lock, so a submit can
// never interleave with a section edit from the same owner. The session
// is removed only after both the application record and the initial
// status entry are durably written; a backend failure keeps the session
// so the applicant may resubmit. An incomplete form that reaches here is
// treated as abandoned: the session is discarded.
func (p *Pipeline) Submit(ctx context.Context, ownerID string) (string, error) {
	var applicationID string

	err := p.sessions.Update(ownerID, func(form *application.Form) error {
		if !form.Complete() {
			p.sessions.Remove(ownerID)
			metrics.SubmissionsTotal.WithLabelValues("incomplete").Inc()
			p.log.Info("submit attempted on incomplete form, session discarded", map[string]interface{}{
				"ownerId": ownerID,
			})
			return errors.NewIncomplete("one or more sections still need answers")
		}

		record := &backend.Application{
			OwnerID:       ownerID,
			MinecraftName: form.MinecraftName,
			Answers:       form.Answers,
		}
		for _, img := range form.Images {
			record.Images = append(record.Images, backend.Image{
				Name:        img.Name,
				URL:         img.URL,
				ContentType: img.ContentType,
			})
		}

		id, err := p.backend.CreateApplication(ctx, record)
		if err != nil {
			metrics.SubmissionsTotal.WithLabelValues("persist_failed").Inc()
			return err
		}

		if err := p.backend.AddStatus(ctx, id, backend.Status{
			Label:   backend.StatusSubmissionPending,
			Message: "submitted by applicant",
		}); err != nil {
			metrics.SubmissionsTotal.WithLabelValues("status_failed").Inc()
			return err
		}

		form.Submitted = true
		applicationID = id
		p.sessions.Remove(ownerID)
		return nil
	})
	if err != nil {
		if errors.IsNotFound(err) {
			metrics.SubmissionsTotal.WithLabelValues("not_found").Inc()
		}
		return "", err
	}

	metrics.SubmissionsTotal.WithLabelValues("success").Inc()
	p.log.Info("application submitted", map[string]interface{}{
		"ownerId":       ownerID,
		"applicationId": applicationID,
	})
	return applicationID, nil
}

// HandOff moves a persisted application into the review channel: all
// assets are re-hosted in a single message, each asset record is
// repointed, an UnderReview status is appended and the approve/reject
// affordances are attached. Asset transfer is all-or-nothing; every other
// failure posts a best-effort notice to the review channel and surfaces
// an error that names the application so a human can intervene.
func (p *Pipeline) HandOff(ctx context.Context, applicationID string) (string, error) {
	start := time.Now()

	messageID, err := p.handOff(ctx, applicationID)
	if err != nil {
		metrics.HandOffsTotal.WithLabelValues("failure").Inc()
		p.reportFailure(ctx, applicationID, err)

		stdErr := errors.AsStandard(err)
		stdErr.Details = fmt.Sprintf("application %s: %s", applicationID, stdErr.Details)
		return "", stdErr.WithMetadata("applicationId", applicationID)
	}

	metrics.HandOffsTotal.WithLabelValues("success").Inc()
	metrics.HandOffDuration.Observe(time.Since(start).Seconds())
	return messageID, nil
}

func (p *Pipeline) handOff(ctx context.Context, applicationID string) (string, error) {
	app, err := p.backend.GetApplication(ctx, applicationID)
	if err != nil {
		return "", err
	}

	images, err := p.backend.ListImages(ctx, applicationID)
	if err != nil {
		return "", err
	}

	files, err := p.downloadAll(ctx, applicationID, images)
	if err != nil {
		// All-or-nothing: already-downloaded bytes are discarded.
		return "", err
	}

	sent, err := p.chat.SendFiles(ctx, p.review.ChannelID, reviewContent(app), files)
	if err != nil {
		return "", err
	}

	// Repoint each asset record independently; a partial failure is
	// reported but never rolls back the updates that already landed.
	for i, img := range images {
		if i >= len(sent.AttachmentURLs) {
			p.log.Warn("platform returned no durable location for image record", map[string]interface{}{
				"applicationId": applicationID,
				"imageId":       img.ID,
				"attachments":   len(sent.AttachmentURLs),
			})
			continue
		}
		if err := p.backend.UpdateImageURL(ctx, img.ID, sent.AttachmentURLs[i]); err != nil {
			p.log.Warn("image record update failed after re-host", map[string]interface{}{
				"applicationId": applicationID,
				"imageId":       img.ID,
				"error":         err.Error(),
			})
		}
	}

	if err := p.backend.AddStatus(ctx, applicationID, backend.Status{
		Label:   backend.StatusUnderReview,
		Message: "posted to review queue",
	}); err != nil {
		return "", err
	}

	// The platform delivers reactions out of order when attached
	// back-to-back; the short delay keeps approve first.
	if err := p.chat.AddReaction(ctx, p.review.ChannelID, sent.ID, p.review.ApproveEmoji); err != nil {
		return "", err
	}
	p.sleep(config.GetDuration(p.review.ReactionDelay))
	if err := p.chat.AddReaction(ctx, p.review.ChannelID, sent.ID, p.review.RejectEmoji); err != nil {
		return "", err
	}

	p.log.Info("application handed off to review", map[string]interface{}{
		"applicationId": applicationID,
		"messageId":     sent.ID,
		"assets":        len(files),
	})
	return sent.ID, nil
}

// downloadAll fetches every asset with bounded concurrency, tagging each
// with a deterministic display name. Any single failure fails the batch.
func (p *Pipeline) downloadAll(ctx context.Context, applicationID string, images []backend.Image) ([]chat.File, error) {
	files := make([]chat.File, len(images))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDownloads)

	for i, img := range images {
		g.Go(func() error {
			data, contentType, err := p.download(gctx, img.URL)
			if err != nil {
				return errors.NewUpstreamFailure("asset-download", fmt.Errorf("%s: %w", img.Name, err))
			}
			if contentType == "" {
				contentType = img.ContentType
			}
			files[i] = chat.File{
				Name:        displayName(applicationID, i, contentType),
				ContentType: contentType,
				Data:        data,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func (p *Pipeline) download(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := p.downloader.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// reportFailure posts the best-effort error notice into the review
// channel and raises an ops alert. Neither outcome changes the error
// returned to the caller.
func (p *Pipeline) reportFailure(ctx context.Context, applicationID string, cause error) {
	notice := fmt.Sprintf("⚠️ Hand-off of application `%s` failed and needs manual attention: %s",
		applicationID, errors.AsStandard(cause).Message)
	if _, err := p.chat.SendMessage(ctx, p.review.ChannelID, notice); err != nil {
		p.log.Error("failed to post hand-off error notice", map[string]interface{}{
			"applicationId": applicationID,
			"error":         err.Error(),
		})
	}

	if p.alerter != nil {
		if err := p.alerter.PublishAlert(ctx, "greenbot hand-off failure",
			fmt.Sprintf("application %s: %s", applicationID, cause.Error())); err != nil {
			p.log.Error("failed to publish ops alert", map[string]interface{}{
				"applicationId": applicationID,
				"error":         err.Error(),
			})
		}
	}
}

func reviewContent(app *backend.Application) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Application %s** from %s\n", app.ID, app.MinecraftName)
	for _, key := range []string{"name", "age", "timezone", "about_you", "why_join", "experience", "builds_note", "referral"} {
		if val := app.Answers[key]; val != "" {
			fmt.Fprintf(&b, "• %s: %s\n", strings.ReplaceAll(key, "_", " "), val)
		}
	}
	return b.String()
}

// displayName gives each re-hosted asset a deterministic, reviewer
// friendly file name.
func displayName(applicationID string, index int, contentType string) string {
	return fmt.Sprintf("application-%s-build-%02d%s", applicationID, index+1, extensionFor(contentType))
}

func extensionFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
