package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/config"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/errors"
)

func newTestGateway(serverURL string) *RestGateway {
	return NewRestGateway(config.ChatConfig{
		BaseURL:  serverURL,
		BotToken: "test-token",
		GuildID:  "guild-1",
		Timeout:  5000,
	})
}

func TestSendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/channels/chan-1/messages", r.URL.Path)
		require.Equal(t, "Bot test-token", r.Header.Get("Authorization"))

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "hello", payload["content"])

		fmt.Fprint(w, `{"id":"msg-1","channel_id":"chan-1"}`)
	}))
	defer server.Close()

	id, err := newTestGateway(server.URL).SendMessage(context.Background(), "chan-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
}

func TestSendFiles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		require.Equal(t, "multipart/form-data", mediaType)

		reader := multipart.NewReader(r.Body, params["boundary"])
		var partNames []string
		for {
			part, err := reader.NextPart()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			partNames = append(partNames, part.FormName())
		}
		assert.Equal(t, []string{"payload_json", "files[0]", "files[1]"}, partNames)

		fmt.Fprint(w, `{
			"id": "msg-2",
			"attachments": [
				{"id": "a0", "url": "https://cdn.chat/a0.png"},
				{"id": "a1", "url": "https://cdn.chat/a1.png"}
			]
		}`)
	}))
	defer server.Close()

	sent, err := newTestGateway(server.URL).SendFiles(context.Background(), "chan-1", "two builds", []File{
		{Name: "build-01.png", ContentType: "image/png", Data: []byte("png-1")},
		{Name: "build-02.png", ContentType: "image/png", Data: []byte("png-2")},
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-2", sent.ID)
	assert.Equal(t, []string{"https://cdn.chat/a0.png", "https://cdn.chat/a1.png"}, sent.AttachmentURLs)
}

func TestSendDirectMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/@me/channels":
			var payload map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "user-7", payload["recipient_id"])
			fmt.Fprint(w, `{"id":"dm-chan-1"}`)
		case "/channels/dm-chan-1/messages":
			fmt.Fprint(w, `{"id":"dm-msg-1"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	id, err := newTestGateway(server.URL).SendDirectMessage(context.Background(), "user-7", "hi there")
	require.NoError(t, err)
	assert.Equal(t, "dm-msg-1", id)
}

func TestAddReactionAndGrantRole(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	g := newTestGateway(server.URL)
	require.NoError(t, g.AddReaction(context.Background(), "chan-1", "msg-1", "✅"))
	require.NoError(t, g.GrantRole(context.Background(), "user-7", "role-member"))

	require.Len(t, paths, 2)
	assert.Contains(t, paths[0], "/channels/chan-1/messages/msg-1/reactions/")
	assert.Equal(t, "/guilds/guild-1/members/user-7/roles/role-member", paths[1])
}

func TestPlatformErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"Missing Permissions","code":50013}`, http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestGateway(server.URL).SendMessage(context.Background(), "chan-1", "hello")
	require.Error(t, err)

	stdErr := errors.AsStandard(err)
	assert.Equal(t, errors.ErrCodeUpstreamFailure, stdErr.Code)
	assert.Contains(t, stdErr.Details, "50013")
}
