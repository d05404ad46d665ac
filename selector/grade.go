package selector

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const gradeSuffix = "GPA"

var (
	errMissingGrade = errors.New("grade is missing")
	errNotFinite    = errors.New("grade is not a finite number")
	errGradeType    = errors.New("grade must be a number or a string")
	errMissingName  = errors.New("name is missing")
	errRecordType   = errors.New("record must be an object with a string Name")
)

type gradeKind uint8

const (
	gradeUnset gradeKind = iota
	gradeNumber
	gradeText
	// gradeInvalid holds a JSON value that is neither a number nor a string.
	gradeInvalid
)

// Grade is a student's grade as supplied: either a number or a string such
// as "3.7GPA". The zero value is an unset grade. Decoding never fails; a
// value of any other JSON type yields a Grade whose Float reports the error.
type Grade struct {
	kind gradeKind
	num  float64
	text string
	err  error
}

// NumericGrade returns a numeric Grade.
func NumericGrade(v float64) Grade {
	return Grade{kind: gradeNumber, num: v}
}

// TextGrade returns a textual Grade.
func TextGrade(s string) Grade {
	return Grade{kind: gradeText, text: s}
}

// IsZero reports whether the grade is unset.
func (g Grade) IsZero() bool { return g.kind == gradeUnset }

// IsText reports whether the grade was supplied as a string.
func (g Grade) IsText() bool { return g.kind == gradeText }

func (g Grade) String() string {
	switch g.kind {
	case gradeNumber:
		return strconv.FormatFloat(g.num, 'f', -1, 64)
	case gradeText, gradeInvalid:
		return g.text
	default:
		return ""
	}
}

// Float returns the grade on the numeric scale. Textual grades are trimmed,
// lose one trailing "GPA" and are parsed as a float. The result is always
// finite.
func (g Grade) Float() (float64, error) {
	var v float64
	switch g.kind {
	case gradeNumber:
		v = g.num
	case gradeText:
		s := strings.TrimSpace(g.text)
		s = strings.TrimSpace(strings.TrimSuffix(s, gradeSuffix))
		f, err := parseDecimal(s)
		if err != nil {
			return 0, err
		}
		v = f
	case gradeInvalid:
		return 0, g.err
	default:
		return 0, errMissingGrade
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}

// parseDecimal is strconv.ParseFloat without hexadecimal literals.
func parseDecimal(s string) (float64, error) {
	digits := strings.TrimLeft(s, "+-")
	if len(digits) > 1 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		return 0, &strconv.NumError{Func: "ParseFloat", Num: s, Err: strconv.ErrSyntax}
	}
	return strconv.ParseFloat(s, 64)
}

func (g Grade) MarshalJSON() ([]byte, error) {
	switch g.kind {
	case gradeNumber:
		return json.Marshal(g.num)
	case gradeText:
		return json.Marshal(g.text)
	case gradeInvalid:
		return []byte(g.text), nil
	default:
		return []byte("null"), nil
	}
}

func (g *Grade) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*g = Grade{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*g = TextGrade(s)
		return nil
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			cause := errGradeType
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) && strings.HasPrefix(typeErr.Value, "number") {
				cause = errNotFinite
			}
			*g = Grade{kind: gradeInvalid, text: string(data), err: cause}
			return nil
		}
		*g = NumericGrade(f)
		return nil
	}
}

// GradeError describes a student record whose grade could not be standardized.
type GradeError struct {
	Name  string
	Grade Grade
	Err   error
}

func (e *GradeError) Error() string {
	return fmt.Sprintf("selector: student %q has invalid grade %q: %v", e.Name, e.Grade.String(), e.Err)
}

func (e *GradeError) Unwrap() error {
	return e.Err
}
