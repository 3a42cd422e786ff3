/*
Package source fetches time entries from an external time-tracking API.

PURPOSE:
  The engine never fetches data; this client is the feeder that pulls raw
  entries for a workspace and date range and maps the wire format into
  engine.TimeEntry. Authentication uses OAuth2 client credentials; the
  token source refreshes transparently.

WIRE FORMAT:
  The upstream API nests rates under an "amount" object and reports
  intervals under "timeInterval", e.g.:

    {
      "id": "e-1",
      "userId": "u-1",
      "userName": "Ada",
      "type": "REGULAR",
      "billable": true,
      "timeInterval": {"start": "...", "end": "...", "duration": "PT8H"},
      "amount": {"earned": 4000, "cost": 2500}
    }

  Rates may also appear as top-level earnedRate/costRate on older
  workspaces; both shapes are accepted.

PAGING:
  Results are paged with page/page-size query parameters; fetching stops
  on the first short page.
*/
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/warp/overtime-engine/engine"
)

const defaultPageSize = 200

// Config configures the remote source client.
type Config struct {
	BaseURL      string
	WorkspaceID  string
	ClientID     string
	ClientSecret string
	TokenURL     string
	PageSize     int
}

// Client is an authenticated entry-source client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	workspace  string
	pageSize   int
}

// NewClient creates a client using OAuth2 client credentials.
func NewClient(ctx context.Context, cfg Config) *Client {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Client{
		httpClient: cc.Client(ctx),
		baseURL:    cfg.BaseURL,
		workspace:  cfg.WorkspaceID,
		pageSize:   pageSize,
	}
}

// wireEntry is the upstream record shape.
type wireEntry struct {
	ID           string `json:"id"`
	UserID       string `json:"userId"`
	UserName     string `json:"userName"`
	Description  string `json:"description"`
	Type         string `json:"type"`
	Billable     bool   `json:"billable"`
	TimeInterval struct {
		Start    string `json:"start"`
		End      string `json:"end"`
		Duration string `json:"duration"`
	} `json:"timeInterval"`
	Amount *struct {
		Earned int64 `json:"earned"`
		Cost   int64 `json:"cost"`
	} `json:"amount"`
	EarnedRate int64 `json:"earnedRate"`
	CostRate   int64 `json:"costRate"`
}

// FetchEntries pulls all entries for the inclusive date range, following
// pages until exhausted.
func (c *Client) FetchEntries(ctx context.Context, r engine.DateRange) ([]engine.TimeEntry, error) {
	var all []engine.TimeEntry

	for page := 1; ; page++ {
		batch, err := c.fetchPage(ctx, r, page)
		if err != nil {
			return nil, err
		}
		for _, w := range batch {
			all = append(all, mapEntry(w))
		}
		if len(batch) < c.pageSize {
			return all, nil
		}
	}
}

func (c *Client) fetchPage(ctx context.Context, r engine.DateRange, page int) ([]wireEntry, error) {
	endpoint := fmt.Sprintf("%s/workspaces/%s/entries", c.baseURL, url.PathEscape(c.workspace))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build entries request: %w", err)
	}
	q := req.URL.Query()
	q.Set("start", r.Start)
	q.Set("end", r.End)
	q.Set("page", strconv.Itoa(page))
	q.Set("page-size", strconv.Itoa(c.pageSize))
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch entries page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("entries API returned %d: %s", resp.StatusCode, body)
	}

	var batch []wireEntry
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("decode entries page %d: %w", page, err)
	}
	return batch, nil
}

// mapEntry converts a wire record to the engine's input type. Rates prefer
// the nested amount object over the flat legacy fields.
func mapEntry(w wireEntry) engine.TimeEntry {
	e := engine.TimeEntry{
		ID:          w.ID,
		UserID:      w.UserID,
		UserName:    w.UserName,
		Description: w.Description,
		Start:       w.TimeInterval.Start,
		End:         w.TimeInterval.End,
		Duration:    w.TimeInterval.Duration,
		Type:        engine.EntryType(w.Type),
		Billable:    w.Billable,
		EarnedRate:  w.EarnedRate,
		CostRate:    w.CostRate,
	}
	if w.Amount != nil {
		e.EarnedRate = w.Amount.Earned
		e.CostRate = w.Amount.Cost
	}
	return e
}
