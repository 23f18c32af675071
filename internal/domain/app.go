// Package domain defines the core entities of the workshop catalog.
package domain

// App is a catalog entity whose items are crawled.
// Apps are created and removed by the admin surface; the download scheduler
// derives its active set from the enabled flag.
type App struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Developer   string `json:"developer"`
	Description string `json:"description"`
	Banner      string `json:"banner"`
	// Enabled marks the app as eligible for downloading and voting.
	Enabled bool `json:"enabled"`
	// Available marks the app as visible to clients.
	Available bool `json:"available"`
	// KnownTags is the set of tag slugs observed for this app.
	KnownTags []string `json:"known_tags,omitempty"`
	// DefaultTags are preselected for client-side filtering.
	DefaultTags []string `json:"default_tags,omitempty"`
}
