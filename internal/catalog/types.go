// Package catalog provides rate-limited clients for the upstream content
// catalog and its profile lookup API.
package catalog

import "github.com/goccy/go-json"

// Page is one response of the paginated file-listing endpoint. Entries are
// kept raw: the scheduler forwards pages whole and never inspects
// item-level content, and one malformed entry must not fail its siblings.
type Page struct {
	AppID      int64
	Total      int64
	NextCursor string
	Entries    []json.RawMessage
}

// pageEnvelope mirrors the upstream wire shape.
type pageEnvelope struct {
	Response struct {
		Total                int64             `json:"total"`
		NextCursor           string            `json:"next_cursor"`
		PublishedFileDetails []json.RawMessage `json:"publishedfiledetails"`
	} `json:"response"`
}

// EntryTag is a tag as it appears on a raw catalog entry.
type EntryTag struct {
	Tag         string `json:"tag"`
	DisplayName string `json:"display_name"`
}

// Child is a declared dependency of a catalog entry.
type Child struct {
	PublishedFileID string `json:"publishedfileid"`
	SortOrder       int64  `json:"sortorder"`
	FileType        int64  `json:"file_type"`
}

// EntryVoteData carries the upstream popularity score.
type EntryVoteData struct {
	Score     float64 `json:"score"`
	VotesUp   int64   `json:"votes_up"`
	VotesDown int64   `json:"votes_down"`
}

// Entry is one raw catalog entry. Fields the assembler requires are
// pointers so absence is distinguishable from zero values.
type Entry struct {
	PublishedFileID string         `json:"publishedfileid"`
	Creator         *string        `json:"creator"`
	CreatorAppID    *int64         `json:"creator_appid"`
	Title           *string        `json:"title"`
	FileDescription *string        `json:"file_description"`
	PreviewURL      *string        `json:"preview_url"`
	TimeUpdated     *int64         `json:"time_updated"`
	Tags            []EntryTag     `json:"tags"`
	Children        []Child        `json:"children"`
	VoteData        *EntryVoteData `json:"vote_data"`
}

// Profile is one entry of a batched profile lookup response.
type Profile struct {
	ID   string `json:"steamid"`
	Name string `json:"personaname"`
}

// profileEnvelope mirrors the upstream wire shape.
type profileEnvelope struct {
	Response struct {
		Players []Profile `json:"players"`
	} `json:"response"`
}
