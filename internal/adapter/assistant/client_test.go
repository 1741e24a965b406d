package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/pagegen/internal/domain"
)

func decodeAction(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestClientActions(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		body := decodeAction(t, r)
		action, _ := body["action"].(string)
		seen = append(seen, action)

		w.Header().Set("Content-Type", "application/json")
		switch action {
		case ActionCreateThread:
			fmt.Fprint(w, `{"id":"thread_1"}`)
		case ActionAddMessage:
			assert.Equal(t, "thread_1", body["threadId"])
			assert.Equal(t, "build a page", body["content"])
			fmt.Fprint(w, `{"ok":true}`)
		case ActionRunAssistant:
			assert.Equal(t, "asst_1", body["assistantId"])
			assert.Equal(t, "gpt-4o", body["model"])
			assert.Equal(t, []any{map[string]any{"type": "file_search"}}, body["tools"])
			fmt.Fprint(w, `{"id":"run_1","status":"queued"}`)
		case ActionGetRunStatus:
			assert.Equal(t, "run_1", body["runId"])
			fmt.Fprint(w, `{"id":"run_1","status":"in_progress","tool_calls":[{"id":"tc1","type":"file_search","file_search":{"queries":["hero layout"]}}]}`)
		case ActionGetMessages:
			fmt.Fprint(w, `{"data":[{"id":"m2","role":"assistant","created_at":20,"content":[{"type":"text","text":{"value":"hi"}}]}]}`)
		default:
			t.Fatalf("unexpected action %q", action)
		}
	}))
	defer server.Close()

	ctx := context.Background()
	client := NewClient(server.URL, time.Second)

	threadID, err := client.CreateThread(ctx, "secret")
	require.NoError(t, err)
	assert.Equal(t, "thread_1", threadID)

	require.NoError(t, client.AddMessage(ctx, "secret", threadID, "build a page"))

	run, err := client.RunAssistant(ctx, "secret", threadID, Config{AssistantID: "asst_1", Model: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "queued", run.Status)

	status, err := client.GetRunStatus(ctx, "secret", threadID, run.ID)
	require.NoError(t, err)
	require.Len(t, status.ToolCalls, 1)
	assert.Equal(t, []string{"hero layout"}, status.ToolCalls[0].FileSearch.Queries)

	messages, err := client.GetMessages(ctx, "secret", threadID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hi", messages[0].Content[0].Text.Value)

	assert.Equal(t, []string{ActionCreateThread, ActionAddMessage, ActionRunAssistant, ActionGetRunStatus, ActionGetMessages}, seen)
}

func TestClientSurfacesUpstreamErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"thread store unavailable"}}`)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).CreateThread(context.Background(), "secret")

	var netErr *domain.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, http.StatusInternalServerError, netErr.StatusCode)
	assert.Equal(t, "thread store unavailable", netErr.Message)
	assert.Equal(t, ActionCreateThread, netErr.Op)
}

func TestClientUnauthorizedIsAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid key"}}`)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).CreateThread(context.Background(), "bad")
	assert.Equal(t, domain.KindAuth, domain.KindOf(err))
}

func TestClientCreateThreadWithoutID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).CreateThread(context.Background(), "secret")
	assert.Equal(t, domain.KindNetwork, domain.KindOf(err))
}

func TestConfigCacheLoadsOnce(t *testing.T) {
	calls := 0
	cache := NewConfigCache(func(ctx context.Context, apiKey string) (*Config, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("temporary")
		}
		return &Config{AssistantID: "asst_1", Model: "gpt-4o"}, nil
	})

	_, err := cache.Get(context.Background(), "k")
	require.Error(t, err)

	for i := 0; i < 3; i++ {
		cfg, err := cache.Get(context.Background(), "k")
		require.NoError(t, err)
		assert.Equal(t, "asst_1", cfg.AssistantID)
	}
	assert.Equal(t, 2, calls)
}

func TestConfigLoaderFor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := decodeAction(t, r)
		assert.Equal(t, ActionGetAssistant, body["action"])
		assert.Equal(t, "asst_9", body["assistantId"])
		fmt.Fprint(w, `{"id":"asst_9","model":"gpt-4o-mini"}`)
	}))
	defer server.Close()

	cache := NewConfigCache(ConfigLoaderFor(NewClient(server.URL, time.Second), "asst_9"))
	cfg, err := cache.Get(context.Background(), "secret")
	require.NoError(t, err)
	assert.Equal(t, Config{AssistantID: "asst_9", Model: "gpt-4o-mini"}, cfg)
}

func TestStaticConfig(t *testing.T) {
	cfg, err := StaticConfig(Config{AssistantID: "a", Model: "m"}).Get(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "a", cfg.AssistantID)
}
