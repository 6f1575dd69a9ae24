// Package upstream fetches contribution pages from the FollowTheMoney-style JSON API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"ContributionsETL/internal/config"
	"ContributionsETL/internal/domain"
	"ContributionsETL/internal/ports"
)

const maxErrorText = 200

// Client implements ports.PageFetcher over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	years   string
	filters map[string]string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

var (
	_ ports.PageFetcher = (*Client)(nil)
	_ ports.PageDecoder = (*Client)(nil)
)

// NewClient builds a client from configuration; a nil httpClient gets the configured timeout.
func NewClient(cfg config.UpstreamConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		years:   cfg.Years,
		filters: cfg.Filters,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Fetch retrieves one page; every failure is reported as *domain.UpstreamError.
func (c *Client) Fetch(ctx context.Context, partition domain.Partition, page int) (domain.Page, error) {
	fail := func(err error) (domain.Page, error) {
		return domain.Page{}, &domain.UpstreamError{Partition: partition, Page: page, Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fail(fmt.Errorf("wait for rate limiter: %w", err))
	}

	pageURL, err := c.buildPageURL(partition, page)
	if err != nil {
		return fail(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return fail(fmt.Errorf("build request: %w", redact(err)))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "ContributionsETL/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return fail(fmt.Errorf("request page: %w", redact(err)))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(fmt.Errorf("read body: %w", err))
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return fail(fmt.Errorf("api returned %s html: %s", resp.Status, describeHTML(body)))
	}
	if resp.StatusCode != http.StatusOK {
		return fail(fmt.Errorf("api returned %s: %s", resp.Status, truncate(strings.TrimSpace(string(body)))))
	}

	decoded, err := c.Decode(partition, page, body)
	if err != nil {
		return domain.Page{}, err
	}

	if c.logger != nil {
		c.logger.Debug("page fetched", "partition", partition, "page", page, "records", len(decoded.Records), "max_page", decoded.MaxPage)
	}
	return decoded, nil
}

type response struct {
	Records  []map[string]json.RawMessage `json:"records"`
	MetaInfo struct {
		Paging struct {
			MaxPage json.RawMessage `json:"maxPage"`
		} `json:"paging"`
	} `json:"metaInfo"`
}

// Decode parses a raw response body, as fetched or as archived.
func (c *Client) Decode(partition domain.Partition, page int, raw []byte) (domain.Page, error) {
	fail := func(err error) (domain.Page, error) {
		return domain.Page{}, &domain.UpstreamError{Partition: partition, Page: page, Err: err}
	}

	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fail(fmt.Errorf("decode response: %w", err))
	}

	maxPage, err := parseMaxPage(resp.MetaInfo.Paging.MaxPage)
	if err != nil {
		return fail(err)
	}

	records := make([]domain.Record, 0, len(resp.Records))
	for i, rawRecord := range resp.Records {
		rec, err := decodeRecord(rawRecord)
		if err != nil {
			return fail(fmt.Errorf("decode record %d: %w", i, err))
		}
		records = append(records, rec)
	}

	return domain.Page{
		Partition: partition,
		Number:    page,
		MaxPage:   maxPage,
		Records:   records,
		Raw:       raw,
	}, nil
}

// decodeRecord keeps the object-valued fields of a record; scalar siblings carry no attributes.
func decodeRecord(raw map[string]json.RawMessage) (domain.Record, error) {
	rec := make(domain.Record, len(raw))
	for name, value := range raw {
		trimmed := bytes.TrimSpace(value)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		attrs := map[string]any{}
		if err := dec.Decode(&attrs); err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		rec[name] = attrs
	}
	return rec, nil
}

func parseMaxPage(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, errors.New("response has no metaInfo.paging.maxPage")
	}

	text := strings.Trim(string(raw), `"`)
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("parse maxPage %s: %w", raw, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative maxPage %d", n)
	}
	return n, nil
}

func (c *Client) buildPageURL(partition domain.Partition, page int) (string, error) {
	parsed, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid api url %s: %w", c.baseURL, err)
	}

	query := parsed.Query()
	for key, value := range c.filters {
		query.Set(key, value)
	}
	query.Set("s", string(partition))
	if c.years != "" {
		query.Set("y", c.years)
	}
	query.Set("APIKey", c.apiKey)
	query.Set("mode", "json")
	query.Set("p", strconv.Itoa(page))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// describeHTML extracts readable text from an HTML error page.
func describeHTML(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return truncate(string(body))
	}

	parts := []string{doc.Find("title").First().Text(), doc.Find("body").First().Text()}
	text := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	if text == "" {
		return "(empty page)"
	}
	return truncate(text)
}

func truncate(s string) string {
	if len(s) <= maxErrorText {
		return s
	}
	return s[:maxErrorText] + "..."
}

// redact strips the query string (and with it the API key) from transport errors.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if u, parseErr := url.Parse(urlErr.URL); parseErr == nil {
			u.RawQuery = ""
			return &url.Error{Op: urlErr.Op, URL: u.String(), Err: urlErr.Err}
		}
	}
	return err
}
