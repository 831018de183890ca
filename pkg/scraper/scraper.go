// Package scraper fetches a job posting or resume page and extracts its
// readable text for AI verification.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"resumebot/pkg/logx"
)

const (
	maxBodyBytes   = 2 << 20
	requestTimeout = 20 * time.Second
	userAgent      = "Mozilla/5.0 (compatible; resumebot/1.0)"
)

// Scraper fetches pages over HTTP and extracts text content.
type Scraper struct {
	client *http.Client
	logger *logx.Logger
}

// New creates a scraper. client may be nil to use a default with a timeout.
func New(client *http.Client) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	return &Scraper{client: client, logger: logx.NewLogger("scraper")}
}

// FetchText downloads the page and returns its visible text. Content of the
// <main> element is preferred over the whole <body> to skip navigation and
// footers.
func (s *Scraper) FetchText(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s returned HTTP %d", pageURL, resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}

	root := findElement(doc, "main")
	if root == nil {
		root = findElement(doc, "body")
	}
	if root == nil {
		root = doc
	}

	text := collapseWhitespace(extractText(root))
	if text == "" {
		return "", fmt.Errorf("no text content at %s", pageURL)
	}
	s.logger.Debug("fetched %s: %d characters", pageURL, len(text))
	return text, nil
}

// IsURL reports whether the message text looks like a fetchable link.
func IsURL(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://")
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// extractText walks the tree collecting text nodes, skipping script and
// style subtrees.
func extractText(n *html.Node) string {
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data + " "
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(extractText(c))
	}
	return sb.String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
