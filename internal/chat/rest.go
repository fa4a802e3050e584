// internal/chat/rest.go
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/config"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/errors"
)

// RestGateway implements Gateway over the chat platform's HTTP API using
// a bot token.
type RestGateway struct {
	baseURL    string
	botToken   string
	guildID    string
	httpClient *http.Client
}

var _ Gateway = (*RestGateway)(nil)

func NewRestGateway(cfg config.ChatConfig) *RestGateway {
	return &RestGateway{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		botToken:   cfg.BotToken,
		guildID:    cfg.GuildID,
		httpClient: &http.Client{Timeout: config.GetDuration(cfg.Timeout)},
	}
}

type messageResponse struct {
	ID          string `json:"id"`
	ChannelID   string `json:"channel_id"`
	Attachments []struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"attachments"`
}

func (g *RestGateway) SendMessage(ctx context.Context, channelID, content string) (string, error) {
	payload := map[string]string{"content": content}
	var msg messageResponse
	path := fmt.Sprintf("/channels/%s/messages", url.PathEscape(channelID))
	if err := g.doJSON(ctx, http.MethodPost, path, payload, &msg); err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (g *RestGateway) SendFiles(ctx context.Context, channelID, content string, files []File) (*SentMessage, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	metaPart, err := writer.CreateFormField("payload_json")
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := json.NewEncoder(metaPart).Encode(map[string]string{"content": content}); err != nil {
		return nil, errors.NewInternal(err)
	}

	for i, file := range files {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="files[%d]"; filename=%q`, i, file.Name))
		if file.ContentType != "" {
			header.Set("Content-Type", file.ContentType)
		}
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, errors.NewInternal(err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, errors.NewInternal(err)
	}

	path := fmt.Sprintf("/channels/%s/messages", url.PathEscape(channelID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, &buf)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bot "+g.botToken)

	var msg messageResponse
	if err := g.execute(req, "send-files", &msg); err != nil {
		return nil, err
	}

	sent := &SentMessage{ID: msg.ID}
	for _, attachment := range msg.Attachments {
		sent.AttachmentURLs = append(sent.AttachmentURLs, attachment.URL)
	}
	return sent, nil
}

func (g *RestGateway) CreateThread(ctx context.Context, channelID, name string) (string, error) {
	payload := map[string]interface{}{"name": name, "type": 11}
	var thread struct {
		ID string `json:"id"`
	}
	path := fmt.Sprintf("/channels/%s/threads", url.PathEscape(channelID))
	if err := g.doJSON(ctx, http.MethodPost, path, payload, &thread); err != nil {
		return "", err
	}
	return thread.ID, nil
}

func (g *RestGateway) SendDirectMessage(ctx context.Context, userID, content string) (string, error) {
	// DM channels are created lazily per recipient.
	var dm struct {
		ID string `json:"id"`
	}
	if err := g.doJSON(ctx, http.MethodPost, "/users/@me/channels",
		map[string]string{"recipient_id": userID}, &dm); err != nil {
		return "", err
	}
	return g.SendMessage(ctx, dm.ID, content)
}

func (g *RestGateway) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	path := fmt.Sprintf("/channels/%s/messages/%s/reactions/%s/@me",
		url.PathEscape(channelID), url.PathEscape(messageID), url.PathEscape(emoji))
	return g.doJSON(ctx, http.MethodPut, path, nil, nil)
}

func (g *RestGateway) GrantRole(ctx context.Context, userID, roleID string) error {
	path := fmt.Sprintf("/guilds/%s/members/%s/roles/%s",
		url.PathEscape(g.guildID), url.PathEscape(userID), url.PathEscape(roleID))
	return g.doJSON(ctx, http.MethodPut, path, nil, nil)
}

func (g *RestGateway) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return errors.NewInternal(err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return errors.NewInternal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bot "+g.botToken)

	return g.execute(req, opName(method, path), out)
}

func (g *RestGateway) execute(req *http.Request, op string, out interface{}) error {
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return errors.NewUpstreamFailure(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return errors.NewUpstreamFailure(op, fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewUpstreamFailure(op, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func opName(method, path string) string {
	return strings.ToLower(method) + " " + path
}
