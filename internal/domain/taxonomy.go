package domain

import "time"

// PropertyClass partitions the crowd-sourced taxonomy.
type PropertyClass string

const (
	ClassType    PropertyClass = "type"
	ClassTheme   PropertyClass = "theme"
	ClassGenre   PropertyClass = "genre"
	ClassFeature PropertyClass = "feature"
)

// Valid reports whether c is a known property class.
func (c PropertyClass) Valid() bool {
	switch c {
	case ClassType, ClassTheme, ClassGenre, ClassFeature:
		return true
	}
	return false
}

// Property is a taxonomy node identified by (class, value).
// Values are stored lower-cased and are immutable once created.
type Property struct {
	ID    int64         `json:"id"`
	Class PropertyClass `json:"class"`
	Value string        `json:"value"`
}

// LinkStatus is the moderation state of a taxonomy link.
type LinkStatus string

const (
	StatusPending  LinkStatus = "pending"
	StatusAccepted LinkStatus = "accepted"
	StatusRejected LinkStatus = "rejected"
)

// Valid reports whether s is a known link status.
func (s LinkStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// SourceSystem marks links created by the extraction backend.
const SourceSystem = "system"

// UserSource marks links submitted by a user.
func UserSource(userID string) string {
	return "user:" + userID
}

// TaxonomyLink is the crowd-sourced classification edge between an item and
// a property. Counters are maintained atomically with vote writes:
// UpvoteCount is the signed sum of all recorded vote scores and VoteCount
// the number of recorded votes.
type TaxonomyLink struct {
	ID          int64         `json:"id"`
	ItemID      string        `json:"item_id"`
	Class       PropertyClass `json:"class"`
	Value       string        `json:"value"`
	Note        string        `json:"note,omitempty"`
	Status      LinkStatus    `json:"status"`
	Source      string        `json:"source"`
	UpvoteCount int64         `json:"upvote_count"`
	VoteCount   int64         `json:"vote_count"`
}

// Vote is one user's score on a taxonomy link, one per (link, user).
type Vote struct {
	LinkID    int64     `json:"link_id"`
	UserID    string    `json:"user_id"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// Classification is the fixed-shape record returned by the extraction backend.
type Classification struct {
	Genres   []string `json:"genres"`
	Themes   []string `json:"themes"`
	Types    []string `json:"types"`
	Features []string `json:"features"`
}

// Pairs flattens the record into (class, value) pairs, in a stable order.
func (c Classification) Pairs() []struct {
	Class PropertyClass
	Value string
} {
	var pairs []struct {
		Class PropertyClass
		Value string
	}
	add := func(class PropertyClass, values []string) {
		for _, v := range values {
			pairs = append(pairs, struct {
				Class PropertyClass
				Value string
			}{class, v})
		}
	}
	add(ClassGenre, c.Genres)
	add(ClassTheme, c.Themes)
	add(ClassType, c.Types)
	add(ClassFeature, c.Features)
	return pairs
}
