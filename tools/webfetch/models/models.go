package models

// Result is the readable extraction of one fetched page. A failed render
// still produces a Result (Status 599) so callers can log the attempt.
type Result struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Byline   string `json:"byline,omitempty"`
	Text     string `json:"text"`
	TopImage string `json:"top_image,omitempty"`
	Status   int    `json:"status"`
	RenderMS int    `json:"render_ms"`
}
