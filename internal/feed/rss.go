package feed

import (
	"fmt"
	"time"

	"github.com/gorilla/feeds"
)

// RenderRSS serializes feed items into RSS 2.0 XML. The newest item's
// timestamp becomes the channel's lastBuildDate so conditional fetchers can
// short-circuit.
func RenderRSS(title, selfURL string, items []Item) (string, error) {
	f := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: selfURL},
		Description: "Deal alerts: restocks, price drops, and target prices",
		Created:     time.Now(),
	}
	if len(items) > 0 {
		f.Updated = items[0].PublishedAt
	}
	for _, it := range items {
		f.Items = append(f.Items, &feeds.Item{
			Title:       it.Title,
			Link:        &feeds.Link{Href: it.Link},
			Description: it.Description,
			Created:     it.PublishedAt,
		})
	}
	out, err := f.ToRss()
	if err != nil {
		return "", fmt.Errorf("render rss: %w", err)
	}
	return out, nil
}
