// Package unifiedllm provides a small provider-agnostic chat completion SDK
// with function calling.
//
// # Architecture
//
//   - Provider layer: the ProviderAdapter interface, implemented by
//     OpenAIAdapter (OpenAI, OpenAI-compatible endpoints and Azure OpenAI
//     deployments, via github.com/openai/openai-go/v3) and GollmAdapter
//     (github.com/teilomillet/gollm).
//   - Client layer: Client routes each Request to a registered provider and
//     runs it through a Middleware chain (see LoggingMiddleware).
//   - Types: Message, ContentPart, Tool, Request and Response describe a
//     conversation independently of any provider wire format.
//
// # Quick Start
//
//	adapter, err := unifiedllm.NewAzureOpenAIAdapter(unifiedllm.AzureOpenAIConfig{
//	    Endpoint:   "https://example.openai.azure.com",
//	    APIKey:     key,
//	    Deployment: "gpt-4o",
//	})
//	client := unifiedllm.NewClient(
//	    unifiedllm.WithProvider("azure", adapter),
//	    unifiedllm.WithMiddleware(unifiedllm.LoggingMiddleware(logger)),
//	)
//
//	resp, err := client.Complete(ctx, unifiedllm.Request{
//	    Messages: []unifiedllm.Message{unifiedllm.UserMessage("Hello")},
//	})
//	fmt.Println(resp.Text())
//
// # Function Calling
//
// Tools are declared with a JSON schema. When the model asks for a call, the
// response carries ContentToolCall parts; the caller runs the function, then
// appends the assistant message and a ToolResultMessage per call before
// completing again:
//
//	calls := resp.ToolCallsFromResponse()
//	conversation = append(conversation, resp.Message)
//	conversation = append(conversation, unifiedllm.ToolResultMessage(calls[0].ID, output, false))
//
// Retries are not performed at any layer; callers bound each call with a
// context deadline.
package unifiedllm
