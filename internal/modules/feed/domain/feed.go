package domain

// Meta describes the re-published news feed
type Meta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      string `json:"author"`
}
