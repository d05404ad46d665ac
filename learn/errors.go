package learn

import (
	"errors"
	"fmt"
)

// ErrAuthenticationFailed is returned when no access token could be obtained.
var ErrAuthenticationFailed = errors.New("learn: authentication failed")

// CatalogError reports a catalog response that could not be returned to the
// caller: a non-200 status or a body that is not JSON.
type CatalogError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *CatalogError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("learn: catalog returned status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("learn: catalog returned status %d: %s", e.StatusCode, e.Body)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}
