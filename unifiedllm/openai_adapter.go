package unifiedllm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared"
	"github.com/openai/openai-go/v3/shared/constant"
)

const (
	// DefaultAzureAPIVersion is used when AzureOpenAIConfig.APIVersion is empty.
	DefaultAzureAPIVersion = "2024-02-15-preview"

	// DefaultRequestTimeout bounds a single chat completion when no timeout
	// or HTTP client is configured.
	DefaultRequestTimeout = 60 * time.Second
)

// OpenAIConfig configures an adapter for OpenAI or any OpenAI-compatible
// chat completions endpoint.
type OpenAIConfig struct {
	// Provider is the name reported by the adapter. Defaults to "openai".
	Provider   string
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// AzureOpenAIConfig configures an adapter for an Azure OpenAI deployment.
type AzureOpenAIConfig struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	// Deployment is sent as the model name and used in the request path.
	Deployment string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// OpenAIAdapter implements ProviderAdapter on top of the official openai-go
// client. The same type serves Azure deployments.
type OpenAIAdapter struct {
	provider   string
	client     openai.Client
	httpClient *http.Client
	model      string
	isAzure    bool
}

// NewOpenAIAdapter creates an adapter for OpenAI or an OpenAI-compatible endpoint.
func NewOpenAIAdapter(cfg OpenAIConfig) (*OpenAIAdapter, error) {
	if cfg.APIKey == "" {
		return nil, &ConfigurationError{SDKError: SDKError{Message: "openai: API key not set"}}
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}

	hc := httpClientFor(cfg.HTTPClient, cfg.Timeout)
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(hc),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")+"/"))
	}

	return &OpenAIAdapter{
		provider:   provider,
		client:     openai.NewClient(opts...),
		httpClient: hc,
		model:      cfg.Model,
	}, nil
}

// NewAzureOpenAIAdapter creates an adapter for an Azure OpenAI deployment.
// It uses the Azure base URL, the Api-Key header and deployment path
// rewriting rather than depending on an Azure SDK.
func NewAzureOpenAIAdapter(cfg AzureOpenAIConfig) (*OpenAIAdapter, error) {
	if cfg.APIKey == "" {
		return nil, &ConfigurationError{SDKError: SDKError{Message: "azure: API key not set"}}
	}
	if cfg.Endpoint == "" {
		return nil, &ConfigurationError{SDKError: SDKError{Message: "azure: endpoint not set"}}
	}
	if cfg.Deployment == "" {
		return nil, &ConfigurationError{SDKError: SDKError{Message: "azure: deployment not set"}}
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAzureAPIVersion
	}

	hc := httpClientFor(cfg.HTTPClient, cfg.Timeout)
	opts := []option.RequestOption{
		option.WithBaseURL(strings.TrimSuffix(cfg.Endpoint, "/") + "/"),
		option.WithQueryAdd("api-version", apiVersion),
		option.WithHeader("Api-Key", cfg.APIKey),
		option.WithMiddleware(azurePathRewriteMiddleware()),
		option.WithMaxRetries(0),
		option.WithHTTPClient(hc),
	}

	return &OpenAIAdapter{
		provider:   "azure",
		client:     openai.NewClient(opts...),
		httpClient: hc,
		model:      cfg.Deployment,
		isAzure:    true,
	}, nil
}

// Close drops the idle connections kept by the adapter's HTTP client.
func (a *OpenAIAdapter) Close() error {
	a.httpClient.CloseIdleConnections()
	return nil
}

func httpClientFor(hc *http.Client, timeout time.Duration) *http.Client {
	if hc != nil {
		return hc
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &http.Client{Timeout: timeout}
}

// azurePathRewriteMiddleware rewrites .../chat/completions to
// .../openai/deployments/{model}/chat/completions, reading the deployment
// from the model field of the request body. Any bearer header picked up
// from the environment is dropped; Azure authenticates with Api-Key.
func azurePathRewriteMiddleware() option.Middleware {
	return func(r *http.Request, next option.MiddlewareNext) (*http.Response, error) {
		r.Header.Del("Authorization")

		const suffix = "chat/completions"
		if !strings.HasSuffix(r.URL.Path, suffix) || r.Body == nil {
			return next(r)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(r.Body); err != nil {
			return nil, err
		}
		r.Body = io.NopCloser(bytes.NewReader(buf.Bytes()))

		var payload struct {
			Model string `json:"model"`
		}
		if err := json.Unmarshal(buf.Bytes(), &payload); err != nil || payload.Model == "" {
			return next(r)
		}
		basePath := strings.TrimRight(strings.TrimSuffix(r.URL.Path, suffix), "/")
		r.URL.Path = basePath + "/openai/deployments/" + url.PathEscape(payload.Model) + "/" + suffix
		return next(r)
	}
}

// Name returns the provider identifier.
func (a *OpenAIAdapter) Name() string {
	return a.provider
}

// SupportsToolChoice reports whether the adapter supports a tool choice mode.
func (a *OpenAIAdapter) SupportsToolChoice(mode string) bool {
	switch mode {
	case ToolChoiceAuto, ToolChoiceNone, ToolChoiceRequired:
		return true
	default:
		return false
	}
}

// Complete sends a blocking chat completion request.
func (a *OpenAIAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	params, err := a.buildParams(req)
	if err != nil {
		return nil, err
	}

	completion, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, a.translateError(err)
	}
	if len(completion.Choices) == 0 {
		return nil, &ProviderError{
			SDKError: SDKError{Message: "no choices in response"},
			Provider: a.provider,
		}
	}
	return a.buildResponse(completion), nil
}

func (a *OpenAIAdapter) buildParams(req Request) (openai.ChatCompletionNewParams, error) {
	model := req.Model
	if model == "" || a.isAzure {
		model = a.model
	}
	if model == "" {
		return openai.ChatCompletionNewParams{}, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("%s: model not set", a.provider),
		}}
	}

	messages, err := toOpenAIMessages(req.Messages)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: messages,
	}
	if len(req.Tools) > 0 {
		params.Tools = toOpenAITools(req.Tools)
		mode := ToolChoiceAuto
		if req.ToolChoice != nil && req.ToolChoice.Mode != "" {
			mode = req.ToolChoice.Mode
		}
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String(mode),
		}
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*req.MaxTokens))
	}
	return params, nil
}

func toOpenAIMessages(msgs []Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.TextContent()))
		case RoleUser:
			out = append(out, openai.UserMessage(m.TextContent()))
		case RoleAssistant:
			calls := m.ToolCalls()
			if len(calls) == 0 {
				out = append(out, openai.AssistantMessage(m.TextContent()))
				continue
			}
			asst := openai.ChatCompletionAssistantMessageParam{
				Role:      constant.Assistant("assistant"),
				ToolCalls: make([]openai.ChatCompletionMessageToolCallUnionParam, 0, len(calls)),
			}
			for _, tc := range calls {
				asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID:   tc.ID,
						Type: constant.Function("function"),
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: string(tc.Arguments),
						},
					},
				})
			}
			if text := m.TextContent(); text != "" {
				asst.Content.OfString = param.NewOpt(text)
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		case RoleTool:
			out = append(out, openai.ToolMessage(m.ToolResultText(), m.ToolCallID))
		default:
			return nil, &InvalidRequestError{ProviderError: ProviderError{
				SDKError: SDKError{Message: fmt.Sprintf("unsupported message role %q", m.Role)},
			}}
		}
	}
	return out, nil
}

func toOpenAITools(tools []Tool) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		params := make(shared.FunctionParameters, len(t.Parameters))
		for k, v := range t.Parameters {
			params[k] = v
		}
		out = append(out, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  params,
		}))
	}
	return out
}

func (a *OpenAIAdapter) buildResponse(completion *openai.ChatCompletion) *Response {
	choice := completion.Choices[0]
	msg := choice.Message

	var parts []ContentPart
	if msg.Content != "" {
		parts = append(parts, TextPart(msg.Content))
	}
	for _, tc := range msg.ToolCalls {
		if tc.Type != "function" || tc.Function.Name == "" {
			continue
		}
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.New().String()[:8]
		}
		parts = append(parts, ToolCallPart(id, tc.Function.Name, json.RawMessage(tc.Function.Arguments)))
	}

	reason := string(choice.FinishReason)
	finish := FinishReason{Reason: reason, Raw: reason}
	switch reason {
	case "stop", "length", "tool_calls", "content_filter":
	case "function_call":
		finish.Reason = "tool_calls"
	default:
		finish.Reason = "other"
	}

	return &Response{
		ID:       completion.ID,
		Model:    completion.Model,
		Provider: a.provider,
		Message: Message{
			Role:    RoleAssistant,
			Content: parts,
		},
		FinishReason: finish,
		Usage: Usage{
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:  int(completion.Usage.TotalTokens),
		},
	}
}

// translateError converts an openai-go error into the unified error hierarchy.
func (a *OpenAIAdapter) translateError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		return ErrorFromStatusCode(apiErr.StatusCode, msg, a.provider, apiErr.Code)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &RequestTimeoutError{SDKError: SDKError{Message: "chat completion timed out", Cause: err}}
	}
	return &NetworkError{SDKError: SDKError{Message: a.provider + ": chat completion request failed", Cause: err}}
}
