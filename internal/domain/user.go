package domain

import "time"

// UserName is a cached upstream display name.
//
// It has an independent lifecycle from any authentication user record and
// exists purely to rate-limit upstream profile lookups.
type UserName struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// UserNameMaxAge is the staleness horizon for cached display names.
const UserNameMaxAge = 7 * 24 * time.Hour
