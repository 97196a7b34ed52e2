// Package scraper implements the paginated, rate-limited retrieval of
// raw vacancies from the hh.ru listing API.
package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"hhsync/internal/model"
	"hhsync/internal/snapshot"
	"hhsync/pkg/logging"
)

const httpTimeout = 15 * time.Second

// Inter-request pacing: the hh.ru API has no published quota, so the
// fetcher spaces requests out — wider once a run plans 20 or more.
const (
	longDelay      = 500 * time.Millisecond
	shortDelay     = 100 * time.Millisecond
	delayThreshold = 20
)

// ErrNoEmployers is returned when the configured employer set is
// empty. There is nothing to request, so the run cannot proceed.
var ErrNoEmployers = errors.New("employer set is empty")

// Client is the fetch capability the pipeline depends on. The
// production implementation talks to hh.ru; tests substitute a fake.
type Client interface {
	Fetch(ctx context.Context, params model.FetchParams, pages int) (*model.Snapshot, error)
}

var _ Client = (*HHFetcher)(nil)

// HHFetcher retrieves raw vacancies from the hh.ru listing API,
// page by page per employer, and persists the result as a snapshot.
type HHFetcher struct {
	baseURL   string
	userAgent string
	perPage   int
	currency  string
	client    *http.Client
	store     *snapshot.Store
	log       *logging.Logger
}

// NewHHFetcher constructs a fetcher with a shared HTTP client.
func NewHHFetcher(baseURL, userAgent string, perPage int, currency string, store *snapshot.Store, log *logging.Logger) *HHFetcher {
	return &HHFetcher{
		baseURL:   baseURL,
		userAgent: userAgent,
		perPage:   perPage,
		currency:  currency,
		client:    &http.Client{Timeout: httpTimeout},
		store:     store,
		log:       log,
	}
}

// pageResponse mirrors the top-level hh.ru listing response.
type pageResponse struct {
	Items []model.Vacancy `json:"items"`
}

// Fetch requests pages 0..pages-1 for every configured employer,
// accumulating each employer's vacancies in a buffer that is appended
// to the run result once the employer's last page index is reached.
// Any transport error or non-2xx status aborts the whole fetch with no
// snapshot written. On success the snapshot is persisted and returned.
func (f *HHFetcher) Fetch(ctx context.Context, params model.FetchParams, pages int) (*model.Snapshot, error) {
	if len(params.Employers) == 0 {
		return nil, ErrNoEmployers
	}

	total := len(params.Employers) * pages
	limiter := rate.NewLimiter(rate.Every(delayFor(total)), 1)
	f.log.Info("fetch started", "employers", len(params.Employers), "pages", pages,
		"planned_requests", total, "delay", delayFor(total))

	// Deterministic employer order; the map itself is the fingerprint.
	names := make([]string, 0, len(params.Employers))
	for name := range params.Employers {
		names = append(names, name)
	}
	sort.Strings(names)

	var all []model.Vacancy
	for _, name := range names {
		employerID := params.Employers[name]

		var buffer []model.Vacancy
		for p := 0; p < pages; p++ {
			if err := limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limiter: %w", err)
			}

			items, err := f.fetchPage(ctx, employerID, p, params.OnlySalary)
			if err != nil {
				return nil, fmt.Errorf("employer %q page %d: %w", name, p, err)
			}
			if len(items) > 0 {
				buffer = append(buffer, items...)
				f.log.Info("page received", "employer", name, "page", p, "items", len(items))
			}

			// The buffer is flushed on reaching the last page index even
			// when an intermediate page came back empty; an employer whose
			// every page is empty contributes nothing.
			if p+1 == pages && len(buffer) > 0 {
				all = append(all, buffer...)
				f.log.Info("employer complete", "employer", name, "vacancies", len(buffer))
			}
		}
	}

	f.log.Info("fetch complete", "vacancies", len(all))

	snap := &model.Snapshot{Vacancies: all, Meta: params}
	if err := f.store.Write(snap); err != nil {
		return nil, fmt.Errorf("persist snapshot: %w", err)
	}
	return snap, nil
}

func (f *HHFetcher) fetchPage(ctx context.Context, employerID, page, onlySalary int) ([]model.Vacancy, error) {
	values := url.Values{}
	values.Set("employer_id", strconv.Itoa(employerID))
	values.Set("per_page", strconv.Itoa(f.perPage))
	values.Set("page", strconv.Itoa(page))
	values.Set("currency", f.currency)
	values.Set("only_with_salary", strconv.Itoa(onlySalary))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+values.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hh.ru returned %d: %s", resp.StatusCode, string(body))
	}

	var payload pageResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	return payload.Items, nil
}

// delayFor picks the inter-request interval from the planned request
// count.
func delayFor(plannedRequests int) time.Duration {
	if plannedRequests >= delayThreshold {
		return longDelay
	}
	return shortDelay
}
