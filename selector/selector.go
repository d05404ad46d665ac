package selector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/hhhjonson/courseselector/learn"
	"github.com/hhhjonson/courseselector/unifiedllm"
)

// Completer sends one chat completion request. *unifiedllm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req unifiedllm.Request) (*unifiedllm.Response, error)
}

// CourseFinder looks up courses for a grade. *learn.CatalogClient satisfies it.
type CourseFinder interface {
	GetCoursesForGrade(ctx context.Context, grade float64) (learn.CatalogResponse, error)
}

// Selector lets a model standardize student grades and find courses through
// function calling.
type Selector struct {
	model     Completer
	courses   CourseFinder
	modelName string
	log       logr.Logger
}

// Option configures a Selector.
type Option func(*Selector)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logr.Logger) Option {
	return func(s *Selector) {
		s.log = l
	}
}

// WithModelName sets the model sent with every request. When empty the
// provider's configured model or deployment is used.
func WithModelName(name string) Option {
	return func(s *Selector) {
		s.modelName = name
	}
}

// New creates a Selector.
func New(model Completer, courses CourseFinder, opts ...Option) *Selector {
	s := &Selector{
		model:   model,
		courses: courses,
		log:     logr.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StandardizeStudentData puts every parseable grade on the numeric scale and
// drops the records that cannot be parsed.
func (s *Selector) StandardizeStudentData(students []StudentRecord) []StandardRecord {
	return Standardize(students, s.log)
}

// FindCoursesByGrade returns the catalog courses for grade.
func (s *Selector) FindCoursesByGrade(ctx context.Context, grade float64) (learn.CatalogResponse, error) {
	return s.courses.GetCoursesForGrade(ctx, grade)
}

// Functions describes the operations offered to the model.
func (s *Selector) Functions() []unifiedllm.Tool {
	return Functions()
}

// GetResponse asks the model for course recommendations. If the model calls
// functions, every call is dispatched in order and the model is asked once
// more, deterministically and without tools, for the final answer.
//
// An unknown function or malformed arguments abort the invocation with an
// *unifiedllm.InvalidToolCallError.
func (s *Selector) GetResponse(ctx context.Context) (string, error) {
	log := s.log.WithValues("invocation", uuid.NewString())
	tools := s.Functions()
	conversation := Conversation()

	first, err := s.model.Complete(ctx, unifiedllm.Request{
		Model:      s.modelName,
		Messages:   conversation,
		Tools:      tools,
		ToolChoice: &unifiedllm.ToolChoice{Mode: unifiedllm.ToolChoiceAuto},
	})
	if err != nil {
		return "", fmt.Errorf("selector: model call: %w", err)
	}

	toolCalls := first.ToolCallsFromResponse()
	if len(toolCalls) == 0 {
		log.Info("Model answered without a function call",
			"finishReason", first.FinishReason.Reason, "totalTokens", first.Usage.TotalTokens)
		return first.Text(), nil
	}

	calls := make([]Call, 0, len(toolCalls))
	for _, tc := range toolCalls {
		call, err := DecodeCall(tc.Name, tc.Arguments)
		if err != nil {
			log.Error(err, "Rejected function call", "function", tc.Name, "arguments", string(tc.Arguments))
			return "", err
		}
		calls = append(calls, call)
	}

	conversation = append(conversation, first.Message)
	for i, call := range calls {
		log.Info("Dispatching function call", "function", call.Operation().String(), "callID", toolCalls[i].ID)

		result, err := s.dispatch(ctx, call)
		if err != nil {
			return "", fmt.Errorf("selector: %s: %w", call.Operation(), err)
		}
		content, err := json.Marshal(result)
		if err != nil {
			return "", fmt.Errorf("selector: encode %s result: %w", call.Operation(), err)
		}
		log.V(1).Info("Function call finished", "function", call.Operation().String(), "result", string(content))

		conversation = append(conversation, unifiedllm.ToolResultMessage(toolCalls[i].ID, string(content), false))
	}

	second, err := s.model.Complete(ctx, unifiedllm.Request{
		Model:       s.modelName,
		Messages:    conversation,
		Tools:       tools,
		ToolChoice:  &unifiedllm.ToolChoice{Mode: unifiedllm.ToolChoiceNone},
		Temperature: unifiedllm.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("selector: follow-up model call: %w", err)
	}

	usage := first.Usage.Add(second.Usage)
	log.Info("Model answered", "functionCalls", len(calls), "finishReason", second.FinishReason.Reason,
		"inputTokens", usage.InputTokens, "outputTokens", usage.OutputTokens, "totalTokens", usage.TotalTokens)
	return second.Text(), nil
}

func (s *Selector) dispatch(ctx context.Context, call Call) (any, error) {
	switch c := call.(type) {
	case StandardizeCall:
		return s.StandardizeStudentData(c.Students), nil
	case FindCoursesCall:
		return s.FindCoursesByGrade(ctx, c.Grade)
	default:
		return nil, fmt.Errorf("no handler for %s", call.Operation())
	}
}
