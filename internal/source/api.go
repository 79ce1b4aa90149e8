package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"real-estate-site/internal/models"
)

// maxPages bounds how many "next" links List follows.
const maxPages = 100

// API reads listings from the CMS REST backend.
// GET {base}/api/properties/ answers with either a bare array or a
// paginated envelope; GET {base}/api/properties/{id}/ answers with one listing.
type API struct {
	baseURL string
	client  *http.Client
	breaker *Breaker
}

type page struct {
	Count    int               `json:"count"`
	Next     *string           `json:"next"`
	Previous *string           `json:"previous"`
	Results  []models.Property `json:"results"`
}

// statusError is a non-2xx answer from the backend.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("listings backend returned %d: %s", e.status, e.body)
}

// NewAPI creates an API source. breaker may be nil.
func NewAPI(baseURL string, timeout time.Duration, breaker *Breaker) *API {
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

func (a *API) List(ctx context.Context) ([]models.Property, error) {
	next := a.baseURL + "/api/properties/"
	var properties []models.Property

	for i := 0; next != ""; i++ {
		if i == maxPages {
			return nil, fmt.Errorf("listings backend returned more than %d pages", maxPages)
		}

		body, err := a.fetch(ctx, next)
		if err != nil {
			return nil, err
		}

		results, following, err := decodeList(body)
		if err != nil {
			return nil, err
		}
		properties = append(properties, results...)

		next = ""
		if following != "" {
			if next, err = a.resolve(following); err != nil {
				return nil, err
			}
		}
	}

	if properties == nil {
		properties = []models.Property{}
	}
	return properties, nil
}

func (a *API) Get(ctx context.Context, id int) (*models.Property, error) {
	body, err := a.fetch(ctx, fmt.Sprintf("%s/api/properties/%d/", a.baseURL, id))
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.status == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var property models.Property
	if err := json.Unmarshal(body, &property); err != nil {
		return nil, fmt.Errorf("failed to decode property %d: %w", id, err)
	}
	return &property, nil
}

func (a *API) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if a.breaker != nil && !a.breaker.CanProceed() {
		return nil, ErrUnavailable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if a.breaker != nil && ctx.Err() == nil {
			a.breaker.RecordFailure(0)
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if a.breaker != nil {
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				a.breaker.RecordFailure(resp.StatusCode)
			} else {
				a.breaker.RecordSuccess()
			}
		}
		return nil, &statusError{status: resp.StatusCode, body: truncate(string(body), 200)}
	}

	if a.breaker != nil {
		a.breaker.RecordSuccess()
	}
	return body, nil
}

// resolve makes a "next" link absolute against the base URL.
func (a *API) resolve(link string) (string, error) {
	base, err := url.Parse(a.baseURL + "/")
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	ref, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("invalid next link %q: %w", link, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// decodeList accepts a bare array or a paginated envelope.
func decodeList(body []byte) ([]models.Property, string, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var properties []models.Property
		if err := json.Unmarshal(body, &properties); err != nil {
			return nil, "", fmt.Errorf("failed to decode properties: %w", err)
		}
		return properties, "", nil
	}

	var p page
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, "", fmt.Errorf("failed to decode properties page: %w", err)
	}
	next := ""
	if p.Next != nil {
		next = *p.Next
	}
	return p.Results, next, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
