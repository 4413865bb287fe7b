package domain

import "github.com/samber/lo"

// NewsItem is one feed entry augmented with the image found on its page.
// Title is the dedup key.
type NewsItem struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Summary  string `json:"summary"`
	ImageURL string `json:"image_url"`
}

// Titles returns the dedup keys of items, in order.
func Titles(items []NewsItem) []string {
	return lo.Map(items, func(item NewsItem, _ int) string {
		return item.Title
	})
}
