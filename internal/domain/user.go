package domain

import "time"

// User is an employee who can log, own and move requests.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRef is the short identity embedded in request views.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Ref returns the short identity of u.
func (u *User) Ref() UserRef {
	if u == nil {
		return UserRef{}
	}
	return UserRef{ID: u.ID, Name: u.Name}
}
