package learn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-logr/logr"
)

// PageSize is the number of courses requested per query.
const PageSize = 5

const defaultTimeout = 30 * time.Second

var errNotJSON = errors.New("response body is not valid JSON")

// TokenSource supplies bearer tokens. ok is false when authentication failed.
type TokenSource interface {
	AccessToken(ctx context.Context) (token string, ok bool, err error)
}

// CatalogResponse is the catalog payload, returned verbatim.
type CatalogResponse = json.RawMessage

// CourseQuery selects courses whose grade is at least GradeThreshold.
type CourseQuery struct {
	GradeThreshold float64
	PageSize       int
}

// NewCourseQuery returns a query for grade with the fixed PageSize.
func NewCourseQuery(grade float64) CourseQuery {
	return CourseQuery{GradeThreshold: grade, PageSize: PageSize}
}

// Filter renders the catalog filter expression, e.g. "grade ge 3.5".
func (q CourseQuery) Filter() string {
	return "grade ge " + strconv.FormatFloat(q.GradeThreshold, 'f', -1, 64)
}

// Values returns the query parameters for the catalog request.
func (q CourseQuery) Values() url.Values {
	v := url.Values{}
	v.Set("filter", q.Filter())
	v.Set("top", strconv.Itoa(q.PageSize))
	return v
}

// CatalogClient queries the course catalog with a fresh token per call.
type CatalogClient struct {
	url        string
	tokens     TokenSource
	httpClient *http.Client
	log        logr.Logger
}

// NewCatalogClient creates a client for the catalog at catalogURL.
func NewCatalogClient(catalogURL string, tokens TokenSource, opts ...Option) *CatalogClient {
	o := newOptions(opts)
	hc := o.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &CatalogClient{
		url:        catalogURL,
		tokens:     tokens,
		httpClient: hc,
		log:        o.logger.WithName("catalog"),
	}
}

// GetCoursesForGrade returns up to PageSize courses with a grade of at least
// grade. It fails with ErrAuthenticationFailed before any catalog request when
// no token is available, and with a *CatalogError on a non-200 response.
func (c *CatalogClient) GetCoursesForGrade(ctx context.Context, grade float64) (CatalogResponse, error) {
	token, ok, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAuthenticationFailed
	}

	query := NewCourseQuery(grade)
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, fmt.Errorf("learn: invalid catalog url: %w", err)
	}
	values := u.Query()
	for k, v := range query.Values() {
		values[k] = v
	}
	u.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("learn: build catalog request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	c.log.V(1).Info("Querying course catalog", "filter", query.Filter(), "top", query.PageSize)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("learn: catalog request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("learn: read catalog response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Error(nil, "Catalog request failed", "status", resp.StatusCode, "body", string(body))
		return nil, &CatalogError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if !json.Valid(body) {
		return nil, &CatalogError{StatusCode: resp.StatusCode, Body: string(body), Err: errNotJSON}
	}

	return CatalogResponse(body), nil
}
