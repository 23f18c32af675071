package domain

// Tag is an app-scoped label attached to items.
// Identity is the (app id, slug) pair; DisplayName is what clients render.
type Tag struct {
	AppID       int64  `json:"app_id"`
	Slug        string `json:"slug"`
	DisplayName string `json:"display_name"`
}

// Item is one piece of user-submitted catalog content.
type Item struct {
	ID          string     `json:"id"`
	AppID       int64      `json:"app_id"`
	Author      string     `json:"author"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Languages   []Language `json:"languages"`
	// LastUpdated is the upstream source-of-truth staleness signal, unix seconds.
	LastUpdated int64   `json:"last_updated"`
	PreviewURL  string  `json:"preview_url,omitempty"`
	Tags        []Tag   `json:"tags"`
	Score       float64 `json:"score"`
}

// AssembledItem is an item fresh out of the join/assembly stage, together
// with the ids of its declared dependency children.
type AssembledItem struct {
	Item
	Children []string
	// QueueInference is set when the eligibility gate decided the item
	// should be offered to the extraction backend after persisting.
	QueueInference bool
}
