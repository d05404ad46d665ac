package selector

import "github.com/hhhjonson/courseselector/unifiedllm"

const (
	systemPrompt       = "You are a course recommendation expert who helps students find suitable courses based on their grades."
	standardizeRequest = "Can you standardize the student grades?"
	findCoursesRequest = "Based on the grades, can you also find suitable courses for the students?"
)

// Conversation returns the fixed opening turns sent to the model.
func Conversation() []unifiedllm.Message {
	return []unifiedllm.Message{
		unifiedllm.SystemMessage(systemPrompt),
		unifiedllm.UserMessage(standardizeRequest),
		unifiedllm.UserMessage(findCoursesRequest),
	}
}
