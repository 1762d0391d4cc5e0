package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driven"
	"github.com/custodia-labs/ksef-desk/internal/logger"
)

// Default base URLs of the public environments.
var DefaultURLs = map[domain.Environment]string{
	domain.EnvironmentTest:       "https://ksef-test.mf.gov.pl/api/v2",
	domain.EnvironmentDemo:       "https://ksef-demo.mf.gov.pl/api/v2",
	domain.EnvironmentProduction: "https://ksef.mf.gov.pl/api/v2",
}

// maxInvoiceSize bounds a single fetched document.
const maxInvoiceSize = 32 << 20

// Ensure Client implements the interface.
var _ driven.InvoiceService = (*Client)(nil)

// Client talks to the invoice API.
type Client struct {
	http *http.Client
	urls map[domain.Environment]string
}

// NewClient creates a client from remote settings. Environments without a
// configured URL fall back to settings.BaseURL, then to DefaultURLs.
func NewClient(settings domain.RemoteSettings) *Client {
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultRemoteTimeout
	}

	urls := make(map[domain.Environment]string, len(DefaultURLs))
	for env, u := range DefaultURLs {
		urls[env] = u
		if settings.BaseURL != "" {
			urls[env] = settings.BaseURL
		}
	}
	for env, u := range settings.URLs {
		if u != "" {
			urls[env] = u
		}
	}

	return &Client{
		http: &http.Client{Timeout: timeout},
		urls: urls,
	}
}

// QueryPage fetches one page of invoice metadata.
func (c *Client) QueryPage(ctx context.Context, s driven.Session, q domain.SearchQuery, offset, size int) (*domain.InvoicePage, error) {
	body, err := json.Marshal(newQueryRequest(q))
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	params := url.Values{}
	params.Set("pageOffset", strconv.Itoa(offset))
	params.Set("pageSize", strconv.Itoa(size))

	resp, err := c.do(ctx, s, http.MethodPost, "/invoices/query/metadata?"+params.Encode(), bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkResponse(resp, "query invoices"); err != nil {
		return nil, err
	}

	var out queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}

	page := &domain.InvoicePage{
		Items:   make([]domain.InvoiceSummary, 0, len(out.Invoices)),
		HasMore: out.HasMore,
	}
	for _, m := range out.Invoices {
		page.Items = append(page.Items, m.summary())
	}
	logger.Debug("Fetched %d invoices at offset %d (more: %v)", len(page.Items), offset, page.HasMore)
	return page, nil
}

// FetchInvoice downloads the raw XML document.
func (c *Client) FetchInvoice(ctx context.Context, s driven.Session, ksefNumber string) ([]byte, error) {
	if strings.TrimSpace(ksefNumber) == "" {
		return nil, domain.NewValidationError("ksefNumber", "must not be empty")
	}

	resp, err := c.do(ctx, s, http.MethodGet, "/invoices/ksef/"+url.PathEscape(ksefNumber), nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkResponse(resp, "fetch invoice "+ksefNumber); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxInvoiceSize+1))
	if err != nil {
		return nil, fmt.Errorf("read invoice %s: %w", ksefNumber, err)
	}
	if len(data) > maxInvoiceSize {
		return nil, fmt.Errorf("read invoice %s: document exceeds %d bytes", ksefNumber, maxInvoiceSize)
	}
	return data, nil
}

func (c *Client) do(ctx context.Context, s driven.Session, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	base, ok := c.urls[s.Identity.Environment]
	if !ok {
		return nil, domain.NewValidationError("environment", fmt.Sprintf("no API URL for %q", s.Identity.Environment))
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(base, "/")+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json, application/xml")
	(&oauth2.Token{AccessToken: s.AccessToken, TokenType: "Bearer"}).SetAuthHeader(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	logger.Debug("%s %s -> %d (%s)", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond))
	return resp, nil
}
