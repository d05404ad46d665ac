package selector

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hhhjonson/courseselector/unifiedllm"
)

// ErrUnknownFunction is the cause of an InvalidToolCallError for a function
// name the selector does not implement.
var ErrUnknownFunction = errors.New("unknown function")

// Operation enumerates the functions offered to the model.
type Operation int

const (
	OpStandardizeStudentData Operation = iota + 1
	OpFindCoursesByGrade
)

// String returns the function name the model uses for the operation.
func (o Operation) String() string {
	switch o {
	case OpStandardizeStudentData:
		return "standardize_student_data"
	case OpFindCoursesByGrade:
		return "find_courses_by_grade"
	default:
		return fmt.Sprintf("Operation(%d)", int(o))
	}
}

// ParseOperation maps a function name to its Operation.
func ParseOperation(name string) (Operation, error) {
	switch name {
	case OpStandardizeStudentData.String():
		return OpStandardizeStudentData, nil
	case OpFindCoursesByGrade.String():
		return OpFindCoursesByGrade, nil
	default:
		return 0, ErrUnknownFunction
	}
}

// Call is a decoded function call. It is implemented only by StandardizeCall
// and FindCoursesCall.
type Call interface {
	Operation() Operation
	isCall()
}

// StandardizeCall asks for StandardizeStudentData.
type StandardizeCall struct {
	Students []StudentRecord `json:"students"`
}

func (StandardizeCall) Operation() Operation { return OpStandardizeStudentData }
func (StandardizeCall) isCall()              {}

// FindCoursesCall asks for FindCoursesByGrade.
type FindCoursesCall struct {
	Grade float64 `json:"grade"`
}

func (FindCoursesCall) Operation() Operation { return OpFindCoursesByGrade }
func (FindCoursesCall) isCall()              {}

// DecodeCall validates a function call from the model and decodes its
// arguments. Every failure is an *unifiedllm.InvalidToolCallError; an unknown
// name unwraps to ErrUnknownFunction. Individual student records never fail
// decoding: bad ones are left for Standardize to skip.
func DecodeCall(name string, args json.RawMessage) (Call, error) {
	op, err := ParseOperation(name)
	if err != nil {
		return nil, invalidCall(name, err)
	}

	args = bytes.TrimSpace(args)
	if len(args) == 0 || args[0] != '{' {
		return nil, invalidCall(name, fmt.Errorf("arguments must be a JSON object, got %q", args))
	}

	switch op {
	case OpStandardizeStudentData:
		var raw struct {
			Students *[]StudentRecord `json:"students"`
		}
		if err := json.Unmarshal(args, &raw); err != nil {
			return nil, invalidCall(name, err)
		}
		if raw.Students == nil {
			return nil, invalidCall(name, errors.New(`missing required argument "students"`))
		}
		return StandardizeCall{Students: *raw.Students}, nil

	case OpFindCoursesByGrade:
		var raw struct {
			Grade *float64 `json:"grade"`
		}
		if err := json.Unmarshal(args, &raw); err != nil {
			return nil, invalidCall(name, err)
		}
		if raw.Grade == nil {
			return nil, invalidCall(name, errors.New(`missing required argument "grade"`))
		}
		return FindCoursesCall{Grade: *raw.Grade}, nil
	}
	return nil, invalidCall(name, ErrUnknownFunction)
}

func invalidCall(name string, cause error) error {
	return &unifiedllm.InvalidToolCallError{SDKError: unifiedllm.SDKError{
		Message: fmt.Sprintf("selector: invalid call to %q", name),
		Cause:   cause,
	}}
}

// Functions describes the operations offered to the model.
func Functions() []unifiedllm.Tool {
	return []unifiedllm.Tool{
		{
			Name:        OpStandardizeStudentData.String(),
			Description: "Standardize student data",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"students": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"Name":  map[string]interface{}{"type": "string"},
								"Grade": map[string]interface{}{"type": []string{"string", "number"}},
							},
							"required": []string{"Name", "Grade"},
						},
					},
				},
				"required": []string{"students"},
			},
		},
		{
			Name:        OpFindCoursesByGrade.String(),
			Description: "Find courses based on student grade.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"grade": map[string]interface{}{"type": "number"},
				},
				"required": []string{"grade"},
			},
		},
	}
}
