package parser

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/net/html"

	"SentinelAI/internal/domain"
	"SentinelAI/internal/feed"
)

// RSSScanner pulls alert items from RSS/Atom feeds. Feeds carrying a
// custom <location> element (the Sentinel ingest convention) get the raw
// location string attached for the enrichment pipeline.
type RSSScanner struct {
	client *http.Client
}

// NewRSSScanner wires an HTTP client.
func NewRSSScanner(client *http.Client) *RSSScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &RSSScanner{client: client}
}

// Name identifies the strategy inside the registry.
func (s *RSSScanner) Name() string {
	return "rss"
}

// Scan fetches the feed and returns items published at or after req.Since.
func (s *RSSScanner) Scan(ctx context.Context, req feed.Request) ([]domain.Alert, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("no URL provided for feed %s", req.FeedName)
	}

	doc, err := s.fetchDocument(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", req.FeedName, err)
	}

	var alerts []domain.Alert
	seen := map[string]struct{}{}

	doc.Find("item").Each(func(i int, item *goquery.Selection) {
		alert, ok := parseItem(item, req.FeedName)
		if !ok {
			return
		}
		if !req.Since.IsZero() && alert.PublishedAt.Before(req.Since) {
			return
		}
		if _, dup := seen[alert.ID]; dup {
			return
		}
		seen[alert.ID] = struct{}{}
		alerts = append(alerts, alert)
	})

	return alerts, nil
}

func (s *RSSScanner) fetchDocument(ctx context.Context, feedURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "SentinelAI/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	return doc, nil
}

func parseItem(item *goquery.Selection, feedName string) (domain.Alert, bool) {
	title := strings.TrimSpace(item.Find("title").First().Text())
	if title == "" {
		return domain.Alert{}, false
	}

	link := itemLink(item)
	guid := strings.TrimSpace(item.Find("guid").First().Text())
	if guid == "" {
		guid = link
	}
	if guid == "" {
		guid = feedName + "/" + title
	}

	publishedAt, ok := parsePubDate(item.Find("pubdate").First().Text())
	if !ok {
		return domain.Alert{}, false
	}

	return domain.Alert{
		// Deterministic per item so re-ingesting a feed never duplicates.
		ID:          uuid.NewSHA1(uuid.NameSpaceURL, []byte(guid)).String(),
		Title:       title,
		Body:        strings.TrimSpace(item.Find("description").First().Text()),
		URL:         link,
		Source:      feedName,
		Location:    strings.TrimSpace(item.Find("location").First().Text()),
		PublishedAt: publishedAt,
	}, true
}

// itemLink works around the HTML parser treating <link> as a void
// element: the URL ends up as a text node following the tag.
func itemLink(item *goquery.Selection) string {
	sel := item.Find("link").First()
	if sel.Length() == 0 {
		return ""
	}
	if text := strings.TrimSpace(sel.Text()); text != "" {
		return text
	}
	node := sel.Get(0)
	if node.NextSibling != nil && node.NextSibling.Type == html.TextNode {
		return strings.TrimSpace(node.NextSibling.Data)
	}
	return ""
}

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

func parsePubDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
