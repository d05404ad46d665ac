package selector

import (
	"encoding/json"
	"fmt"

	"github.com/go-logr/logr"
)

// StudentRecord is a student as supplied by the caller or the model.
type StudentRecord struct {
	Name  string `json:"Name"`
	Grade Grade  `json:"Grade"`

	// err is set when the decoded record cannot be standardized at all.
	err error
}

// UnmarshalJSON decodes a record without failing. A value that is not an
// object, or lacks a string Name, decodes to a record that Standardize skips.
func (r *StudentRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name  *string `json:"Name"`
		Grade Grade   `json:"Grade"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		*r = StudentRecord{err: fmt.Errorf("%w: %s", errRecordType, data)}
		return nil
	}

	*r = StudentRecord{Grade: raw.Grade}
	if raw.Name == nil {
		r.err = errMissingName
		return nil
	}
	r.Name = *raw.Name
	return nil
}

// StandardRecord is a StudentRecord with its grade on the numeric scale.
type StandardRecord struct {
	Name  string  `json:"Name"`
	Grade float64 `json:"Grade"`
}

// Standardize converts every record whose grade can be parsed. Records that
// fail are logged as a *GradeError and left out; the rest keep their order.
func Standardize(students []StudentRecord, log logr.Logger) []StandardRecord {
	out := make([]StandardRecord, 0, len(students))
	for _, st := range students {
		grade, err := st.standardGrade()
		if err != nil {
			log.Error(&GradeError{Name: st.Name, Grade: st.Grade, Err: err}, "Skipping student record")
			continue
		}
		out = append(out, StandardRecord{Name: st.Name, Grade: grade})
	}
	return out
}

func (r StudentRecord) standardGrade() (float64, error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.Grade.Float()
}
