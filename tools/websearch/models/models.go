package models

// Result is one normalized search hit, regardless of provider or vertical.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}
