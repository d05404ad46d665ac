package unifiedllm

import (
	"context"
	"time"

	"github.com/go-logr/logr"
)

// LoggingMiddleware logs one line per model call: routing, the size of the
// conversation, and on completion the finish reason, usage and latency.
func LoggingMiddleware(logger logr.Logger) Middleware {
	return func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error) {
		log := logger.WithValues("provider", req.Provider, "model", req.Model)
		log.V(1).Info("Sending chat completion",
			"messages", len(req.Messages),
			"tools", len(req.Tools))

		start := time.Now()
		resp, err := next(ctx, req)
		elapsed := time.Since(start)
		if err != nil {
			log.Error(err, "Chat completion failed", "duration", elapsed.String())
			return nil, err
		}

		log.Info("Chat completion finished",
			"id", resp.ID,
			"finishReason", resp.FinishReason.Reason,
			"toolCalls", len(resp.ToolCallsFromResponse()),
			"inputTokens", resp.Usage.InputTokens,
			"outputTokens", resp.Usage.OutputTokens,
			"duration", elapsed.String())
		return resp, nil
	}
}
