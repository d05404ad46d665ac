package unifiedllm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return srv
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func readBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	var req map[string]any
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}

	return req
}

func textCompletion(text string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gpt-4o",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": text},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     12,
			"completion_tokens": 4,
			"total_tokens":      16,
		},
	}
}

func TestOpenAIAdapter_SimpleText(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		req := readBody(t, r)
		assert.Equal(t, "gpt-4o", req["model"])

		msgs, ok := req["messages"].([]any)
		require.True(t, ok)
		assert.Len(t, msgs, 2)

		first, _ := msgs[0].(map[string]any)
		assert.Equal(t, "system", first["role"])
		assert.NotContains(t, req, "tools")

		writeJSON(t, w, textCompletion("Hello there!"))
	})

	adapter, err := NewOpenAIAdapter(OpenAIConfig{BaseURL: srv.URL, APIKey: "test-key", Model: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "openai", adapter.Name())

	resp, err := adapter.Complete(context.Background(), Request{
		Messages: []Message{SystemMessage("You are helpful."), UserMessage("Hi")},
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello there!", resp.Text())
	assert.Equal(t, "chatcmpl-1", resp.ID)
	assert.Equal(t, "stop", resp.FinishReason.Reason)
	assert.Equal(t, Usage{InputTokens: 12, OutputTokens: 4, TotalTokens: 16}, resp.Usage)
}

func TestOpenAIAdapter_ToolsAndToolChoice(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		req := readBody(t, r)

		assert.Equal(t, "auto", req["tool_choice"])
		tools, ok := req["tools"].([]any)
		require.True(t, ok)
		require.Len(t, tools, 1)

		tool, _ := tools[0].(map[string]any)
		assert.Equal(t, "function", tool["type"])
		fn, _ := tool["function"].(map[string]any)
		assert.Equal(t, "find_courses_by_grade", fn["name"])

		writeJSON(t, w, map[string]any{
			"id":     "chatcmpl-2",
			"object": "chat.completion",
			"model":  "gpt-4o",
			"choices": []map[string]any{
				{
					"index": 0,
					"message": map[string]any{
						"role":    "assistant",
						"content": nil,
						"tool_calls": []map[string]any{
							{
								"id":   "call_abc",
								"type": "function",
								"function": map[string]any{
									"name":      "find_courses_by_grade",
									"arguments": `{"grade":3.5}`,
								},
							},
						},
					},
					"finish_reason": "tool_calls",
				},
			},
		})
	})

	adapter, err := NewOpenAIAdapter(OpenAIConfig{BaseURL: srv.URL, APIKey: "test-key", Model: "gpt-4o"})
	require.NoError(t, err)

	resp, err := adapter.Complete(context.Background(), Request{
		Messages: []Message{UserMessage("Which courses?")},
		Tools: []Tool{{
			Name:        "find_courses_by_grade",
			Description: "Find courses",
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"grade": map[string]interface{}{"type": "number"}},
			},
		}},
	})
	require.NoError(t, err)

	calls := resp.ToolCallsFromResponse()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_abc", calls[0].ID)
	assert.Equal(t, "find_courses_by_grade", calls[0].Name)
	assert.JSONEq(t, `{"grade":3.5}`, string(calls[0].Arguments))
	assert.Equal(t, "tool_calls", resp.FinishReason.Reason)
	assert.Empty(t, resp.Text())
}

func TestOpenAIAdapter_ToolResultConversation(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		req := readBody(t, r)

		assert.Equal(t, "none", req["tool_choice"])
		assert.InDelta(t, 0.0, req["temperature"], 0.0001)

		msgs, ok := req["messages"].([]any)
		require.True(t, ok)
		require.Len(t, msgs, 3)

		asst, _ := msgs[1].(map[string]any)
		assert.Equal(t, "assistant", asst["role"])
		calls, _ := asst["tool_calls"].([]any)
		require.Len(t, calls, 1)
		call, _ := calls[0].(map[string]any)
		assert.Equal(t, "call_1", call["id"])

		tool, _ := msgs[2].(map[string]any)
		assert.Equal(t, "tool", tool["role"])
		assert.Equal(t, "call_1", tool["tool_call_id"])
		assert.Equal(t, `{"value":[]}`, tool["content"])

		writeJSON(t, w, textCompletion("No courses matched."))
	})

	adapter, err := NewOpenAIAdapter(OpenAIConfig{BaseURL: srv.URL, APIKey: "test-key", Model: "gpt-4o"})
	require.NoError(t, err)

	resp, err := adapter.Complete(context.Background(), Request{
		Messages: []Message{
			UserMessage("Which courses?"),
			{
				Role:    RoleAssistant,
				Content: []ContentPart{ToolCallPart("call_1", "find_courses_by_grade", json.RawMessage(`{"grade":3.5}`))},
			},
			ToolResultMessage("call_1", `{"value":[]}`, false),
		},
		Tools:       []Tool{{Name: "find_courses_by_grade", Parameters: map[string]interface{}{"type": "object"}}},
		ToolChoice:  &ToolChoice{Mode: ToolChoiceNone},
		Temperature: Float(0),
	})
	require.NoError(t, err)
	assert.Equal(t, "No courses matched.", resp.Text())
}

func TestAzureOpenAIAdapter_DeploymentPath(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/gpt-35-turbo/chat/completions", r.URL.Path)
		assert.Equal(t, "2023-07-01-preview", r.URL.Query().Get("api-version"))
		assert.Equal(t, "azure-key", r.Header.Get("Api-Key"))
		assert.Empty(t, r.Header.Get("Authorization"))

		req := readBody(t, r)
		assert.Equal(t, "gpt-35-turbo", req["model"])

		writeJSON(t, w, textCompletion("Hi from Azure"))
	})

	adapter, err := NewAzureOpenAIAdapter(AzureOpenAIConfig{
		Endpoint:   srv.URL + "/",
		APIKey:     "azure-key",
		APIVersion: "2023-07-01-preview",
		Deployment: "gpt-35-turbo",
	})
	require.NoError(t, err)
	assert.Equal(t, "azure", adapter.Name())

	resp, err := adapter.Complete(context.Background(), Request{
		Model:    "ignored-for-azure",
		Messages: []Message{UserMessage("Hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi from Azure", resp.Text())
	assert.Equal(t, "azure", resp.Provider)
}

func TestAzureOpenAIAdapter_Config(t *testing.T) {
	_, err := NewAzureOpenAIAdapter(AzureOpenAIConfig{Endpoint: "https://x", Deployment: "d"})
	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))

	_, err = NewAzureOpenAIAdapter(AzureOpenAIConfig{APIKey: "k", Deployment: "d"})
	assert.True(t, errors.As(err, &cfgErr))

	_, err = NewAzureOpenAIAdapter(AzureOpenAIConfig{APIKey: "k", Endpoint: "https://x"})
	assert.True(t, errors.As(err, &cfgErr))

	_, err = NewOpenAIAdapter(OpenAIConfig{})
	assert.True(t, errors.As(err, &cfgErr))
}

func TestOpenAIAdapter_ModelRequired(t *testing.T) {
	adapter, err := NewOpenAIAdapter(OpenAIConfig{BaseURL: "http://127.0.0.1:1", APIKey: "k"})
	require.NoError(t, err)

	_, err = adapter.Complete(context.Background(), Request{Messages: []Message{UserMessage("Hi")}})
	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestOpenAIAdapter_ErrorTranslation(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
		check  func(error) bool
	}{
		{"unauthorized", http.StatusUnauthorized, "invalid_api_key", func(e error) bool { var x *AuthenticationError; return errors.As(e, &x) }},
		{"not found", http.StatusNotFound, "DeploymentNotFound", func(e error) bool { var x *NotFoundError; return errors.As(e, &x) }},
		{"rate limited", http.StatusTooManyRequests, "", func(e error) bool { var x *RateLimitError; return errors.As(e, &x) }},
		{"content filter", http.StatusBadRequest, "content_filter", func(e error) bool { var x *ContentFilterError; return errors.As(e, &x) }},
		{"server", http.StatusInternalServerError, "", func(e error) bool { var x *ServerError; return errors.As(e, &x) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"message": "request failed", "type": "error", "code": tt.code},
				})
			})

			adapter, err := NewOpenAIAdapter(OpenAIConfig{BaseURL: srv.URL, APIKey: "test-key", Model: "gpt-4o"})
			require.NoError(t, err)

			_, err = adapter.Complete(context.Background(), Request{Messages: []Message{UserMessage("Hi")}})
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error type %T: %v", err, err)
			assert.Equal(t, 1, calls, "requests must not be retried")
		})
	}
}

func TestOpenAIAdapter_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	adapter, err := NewOpenAIAdapter(OpenAIConfig{BaseURL: url, APIKey: "test-key", Model: "gpt-4o"})
	require.NoError(t, err)

	_, err = adapter.Complete(context.Background(), Request{Messages: []Message{UserMessage("Hi")}})
	var netErr *NetworkError
	assert.True(t, errors.As(err, &netErr), "expected NetworkError, got %T", err)
}

func TestOpenAIAdapter_EmptyChoices(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"id": "x", "object": "chat.completion", "model": "gpt-4o", "choices": []any{}})
	})

	adapter, err := NewOpenAIAdapter(OpenAIConfig{BaseURL: srv.URL, APIKey: "test-key", Model: "gpt-4o"})
	require.NoError(t, err)

	_, err = adapter.Complete(context.Background(), Request{Messages: []Message{UserMessage("Hi")}})
	var provErr *ProviderError
	assert.True(t, errors.As(err, &provErr))
}

func TestOpenAIAdapter_UnsupportedRole(t *testing.T) {
	_, err := toOpenAIMessages([]Message{{Role: "developer", Content: []ContentPart{TextPart("x")}}})
	var reqErr *InvalidRequestError
	assert.True(t, errors.As(err, &reqErr))
}

func TestOpenAIAdapter_SupportsToolChoice(t *testing.T) {
	adapter := &OpenAIAdapter{provider: "azure"}
	assert.True(t, adapter.SupportsToolChoice(ToolChoiceAuto))
	assert.True(t, adapter.SupportsToolChoice(ToolChoiceNone))
	assert.True(t, adapter.SupportsToolChoice(ToolChoiceRequired))
	assert.False(t, adapter.SupportsToolChoice("named"))
}

// idleTransport records CloseIdleConnections calls.
type idleTransport struct {
	http.RoundTripper
	closed int
}

func (t *idleTransport) CloseIdleConnections() { t.closed++ }

func TestOpenAIAdapter_Close(t *testing.T) {
	transport := &idleTransport{RoundTripper: http.DefaultTransport}
	adapter, err := NewAzureOpenAIAdapter(AzureOpenAIConfig{
		Endpoint:   "https://contoso.openai.azure.com",
		APIKey:     "k",
		Deployment: "gpt-35-turbo",
		HTTPClient: &http.Client{Transport: transport},
	})
	require.NoError(t, err)

	client := NewClient(WithProvider(adapter.Name(), adapter))
	require.NoError(t, client.Close())
	assert.Equal(t, 1, transport.closed)

	// The default client is closable too.
	adapter, err = NewOpenAIAdapter(OpenAIConfig{APIKey: "k", Model: "gpt-4o"})
	require.NoError(t, err)
	assert.NoError(t, adapter.Close())
}
