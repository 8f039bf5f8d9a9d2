// Package content is the client for the remote blog REST API: fetching,
// searching, creating posts, and uploading images. The API itself is an
// external service; this package only speaks its request/response contract.
package content

import "time"

// Post is a blog entry as served by the content API. Dates travel as
// strings in the API's formats.
type Post struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Image       string `json:"image"`
	HTMLContent string `json:"htmlContent,omitempty"`
	TextContent string `json:"textContent,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	Category    string `json:"category,omitempty"`
	PublishedAt string `json:"publishedAt,omitempty"`
	Status      string `json:"status,omitempty"`
}

var postDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// EffectiveDate is the date a post counts under for recency: publishedAt,
// else startDate, else endDate. Posts with no parseable date report ok=false
// and are excluded from recency windows.
func (p Post) EffectiveDate() (time.Time, bool) {
	for _, raw := range []string{p.PublishedAt, p.StartDate, p.EndDate} {
		if raw == "" {
			continue
		}
		for _, layout := range postDateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
