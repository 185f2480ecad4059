package domain

import "time"

// AccessToken is a signed bearer token and the metadata needed to revoke it.
type AccessToken struct {
	Value     string
	ID        string
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
