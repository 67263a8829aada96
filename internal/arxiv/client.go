// Package arxiv fetches paper metadata from the arXiv Atom API for corpus
// collection. Fetching is batched and rate-limited; arXiv asks clients to
// wait between requests, so the client sleeps between pages.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avielr/paperqa/internal/budget"
	"github.com/avielr/paperqa/internal/rag"
)

// defaultBaseURL is the public arXiv API endpoint.
const defaultBaseURL = "http://export.arxiv.org/api/query"

// Client queries the arXiv Atom API.
type Client struct {
	baseURL   string
	batchSize int
	delay     time.Duration
	client    *http.Client
}

// ClientConfig holds the settings for constructing a Client.
type ClientConfig struct {
	// BaseURL overrides the arXiv API endpoint (tests point this at a fake).
	BaseURL string
	// BatchSize is the page size per request. Defaults to 100.
	BatchSize int
	// Delay is the pause between paged requests. Defaults to 3s, which is
	// what arXiv's usage policy asks for.
	Delay time.Duration
	// Timeout bounds each HTTP request. Defaults to 30s.
	Timeout time.Duration
}

// NewClient constructs a Client from the given config.
func NewClient(cfg *ClientConfig) *Client {
	c := &Client{
		baseURL:   cfg.BaseURL,
		batchSize: cfg.BatchSize,
		delay:     cfg.Delay,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.batchSize <= 0 {
		c.batchSize = 100
	}
	if c.delay < 0 {
		c.delay = 0
	} else if c.delay == 0 {
		c.delay = 3 * time.Second
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c.client = &http.Client{Timeout: timeout}
	return c
}

// Atom feed wire types. Only the fields the collector needs are mapped.
type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Summary    string         `xml:"summary"`
	Published  string         `xml:"published"`
	Authors    []atomAuthor   `xml:"author"`
	Categories []atomCategory `xml:"category"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

// FetchCategory fetches up to limit recent papers in the given category,
// newest first. Papers published before cutoffYear are skipped, and because
// results arrive date-descending the fetch stops at the first one. Fewer
// than limit results is not an error; the category may be small.
func (c *Client) FetchCategory(ctx context.Context, category string, limit, cutoffYear int) ([]rag.Document, error) {
	var papers []rag.Document
	start := 0

	for len(papers) < limit {
		if start > 0 && c.delay > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("arxiv: fetch %s: %w", category, ctx.Err())
			case <-time.After(c.delay):
			}
		}

		batch := min(c.batchSize, limit-len(papers))
		feed, err := c.query(ctx, category, start, batch)
		if err != nil {
			return nil, err
		}
		if len(feed.Entries) == 0 {
			break
		}

		for _, e := range feed.Entries {
			doc, year := documentFromEntry(e, category)
			if year != 0 && year < cutoffYear {
				// Date-descending order: everything after this is older.
				return papers, nil
			}
			papers = append(papers, doc)
			if len(papers) >= limit {
				break
			}
		}

		start += batch
	}

	return papers, nil
}

// query performs one paged API request.
func (c *Client) query(ctx context.Context, category string, start, maxResults int) (*atomFeed, error) {
	params := url.Values{}
	params.Set("search_query", "cat:"+category)
	params.Set("start", fmt.Sprint(start))
	params.Set("max_results", fmt.Sprint(maxResults))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv: create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv: HTTP %d from %s", resp.StatusCode, c.baseURL)
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("arxiv: decode feed: %w", err)
	}
	return &feed, nil
}

// documentFromEntry maps an Atom entry to a Document and extracts the
// publication year (0 when the date is missing or malformed).
func documentFromEntry(e atomEntry, fallbackCategory string) (rag.Document, int) {
	id := e.ID
	// Entry IDs look like "http://arxiv.org/abs/2101.00001v1".
	if i := strings.LastIndex(id, "/abs/"); i >= 0 {
		id = id[i+len("/abs/"):]
	}

	names := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}

	category := fallbackCategory
	if len(e.Categories) > 0 && e.Categories[0].Term != "" {
		category = e.Categories[0].Term
	}

	var (
		published string
		year      int
	)
	if t, err := time.Parse(time.RFC3339, e.Published); err == nil {
		published = t.Format("2006-01-02")
		year = t.Year()
	}

	return rag.Document{
		ID:        id,
		Title:     budget.CollapseSpace(e.Title),
		Abstract:  budget.CollapseSpace(e.Summary),
		Authors:   strings.Join(names, ", "),
		Published: published,
		URL:       "https://arxiv.org/abs/" + id,
		Category:  category,
	}, year
}
