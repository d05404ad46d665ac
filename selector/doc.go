// Package selector standardizes student grades and recommends courses by
// letting a language model call two functions:
//
//   - standardize_student_data: put "3.7GPA" style grades on the numeric scale
//   - find_courses_by_grade: query the course catalog for a grade threshold
//
// Function calls are decoded into the closed Call union before dispatch, so
// the model's arguments are validated against each operation's parameters.
package selector
