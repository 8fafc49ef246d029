// Package fetch retrieves organization web pages and reduces them to plain
// text for the extraction prompts.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	defaultTimeout    = 15 * time.Second
	maxBodySize       = 5 << 20 // 5MB per page
	maxContentLength  = 100_000 // cap on aggregated text handed to the model
	defaultMaxRetries = 2
	initialBackoff    = time.Second
	userAgent         = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Fetcher downloads pages with a browser-like user agent and a bounded retry
// policy for transport failures.
type Fetcher struct {
	httpClient *http.Client
	maxRetries int
	pageDelay  time.Duration
}

// New creates a Fetcher with default timeouts and retries.
func New() *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxRetries: defaultMaxRetries,
		pageDelay:  time.Second,
	}
}

// NewWithClient is used by tests to inject a client and drop the politeness
// delay.
func NewWithClient(c *http.Client) *Fetcher {
	return &Fetcher{httpClient: c, maxRetries: defaultMaxRetries}
}

func (f *Fetcher) get(ctx context.Context, pageURL string) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(float64(initialBackoff) * math.Pow(2, float64(attempt-1)))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request for %s: %w", pageURL, err)
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := f.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server returned %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetching %s: unexpected status %d", pageURL, resp.StatusCode)
		}
		return resp, nil
	}
	return nil, fmt.Errorf("fetching %s after %d attempts: %w", pageURL, f.maxRetries+1, lastErr)
}

// PageText fetches a page and returns its visible text. HTML is stripped of
// script/style/navigation chrome; PDF bodies are decoded to plain text.
func (f *Fetcher) PageText(ctx context.Context, pageURL string) (string, error) {
	resp, err := f.get(ctx, pageURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", pageURL, err)
	}

	if isPDF(resp.Header.Get("Content-Type"), body) {
		return pdfText(body)
	}
	return htmlText(bytes.NewReader(body))
}

func isPDF(contentType string, body []byte) bool {
	if strings.Contains(contentType, "application/pdf") {
		return true
	}
	return bytes.HasPrefix(body, []byte("%PDF-"))
}

// DiscoverLinks returns the cleaned same-domain links found on the page at
// rootURL. Query strings and fragments are dropped, and obvious non-content
// targets (mail links, images, PDFs, social profiles) are skipped.
func (f *Fetcher) DiscoverLinks(ctx context.Context, rootURL string) ([]string, error) {
	base, err := url.Parse(rootURL)
	if err != nil {
		return nil, fmt.Errorf("parsing root URL %q: %w", rootURL, err)
	}

	resp, err := f.get(ctx, rootURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	links, err := extractLinks(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", rootURL, err)
	}

	seen := make(map[string]struct{})
	var out []string
	for _, l := range links {
		cleaned, ok := cleanLink(base, l.href)
		if !ok {
			continue
		}
		if _, dup := seen[cleaned]; dup {
			continue
		}
		seen[cleaned] = struct{}{}
		out = append(out, cleaned)
	}
	sort.Strings(out)
	return out, nil
}

var skipSubstrings = []string{
	"javascript:", "mailto:", ".pdf", ".jpg", ".jpeg", ".png", ".gif",
	"facebook.com", "twitter.com", "linkedin.com", "instagram.com",
}

// cleanLink resolves href against base and returns it in canonical form, or
// ok=false when the link leaves the site or is a non-content target.
func cleanLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}

	u, err := base.Parse(href)
	if err != nil {
		return "", false
	}
	if !strings.EqualFold(u.Host, base.Host) {
		return "", false
	}

	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	cleaned := u.String()

	lower := strings.ToLower(cleaned)
	for _, skip := range skipSubstrings {
		if strings.Contains(lower, skip) {
			return "", false
		}
	}
	return cleaned, true
}

var jobKeywords = []string{"job", "position", "opening", "opportunit", "role", "vacanc", "apply"}

func jobRelated(href, text string) bool {
	href = strings.ToLower(href)
	text = strings.ToLower(text)
	for _, kw := range jobKeywords {
		if strings.Contains(href, kw) || strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// AggregateJobContent collects text from the careers page and up to
// maxPages-1 job-related pages linked from it, labeled per source and capped
// at a size the extraction model can take in one request.
func (f *Fetcher) AggregateJobContent(ctx context.Context, careersURL string, maxPages int) (string, error) {
	if maxPages <= 0 {
		maxPages = 10
	}

	rootText, err := f.PageText(ctx, careersURL)
	if err != nil {
		return "", fmt.Errorf("careers page: %w", err)
	}

	var sections []string
	sections = append(sections, fmt.Sprintf("=== CAREERS ROOT PAGE: %s ===\n%s\n", careersURL, rootText))

	links, err := f.jobLinks(ctx, careersURL)
	if err == nil {
		processed := map[string]struct{}{careersURL: {}}
		for _, link := range links {
			if len(sections) >= maxPages {
				break
			}
			if _, dup := processed[link]; dup {
				continue
			}
			processed[link] = struct{}{}

			text, err := f.PageText(ctx, link)
			if err != nil {
				continue
			}
			sections = append(sections, fmt.Sprintf("=== JOB PAGE: %s ===\n%s\n", link, text))

			if f.pageDelay > 0 {
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(f.pageDelay):
				}
			}
		}
	}

	combined := strings.Join(sections, "\n")
	if len(combined) > maxContentLength {
		combined = combined[:maxContentLength]
	}
	return combined, nil
}

// jobLinks returns same-domain links on the careers page whose target or
// anchor text looks job-related.
func (f *Fetcher) jobLinks(ctx context.Context, careersURL string) ([]string, error) {
	base, err := url.Parse(careersURL)
	if err != nil {
		return nil, err
	}

	resp, err := f.get(ctx, careersURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	links, err := extractLinks(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []string
	for _, l := range links {
		if !jobRelated(l.href, l.text) {
			continue
		}
		cleaned, ok := cleanLink(base, l.href)
		if !ok {
			continue
		}
		if _, dup := seen[cleaned]; dup {
			continue
		}
		seen[cleaned] = struct{}{}
		out = append(out, cleaned)
	}
	sort.Strings(out)
	return out, nil
}
