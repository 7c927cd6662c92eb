package model

import "time"

// Room is a two-participant conversation container. Participants are stored
// sorted so the pair is unordered; membership is fixed at creation.
type Room struct {
	ID           string    `json:"id"`
	Participants [2]string `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

// Has reports whether email is one of the room's participants.
func (r Room) Has(email string) bool {
	return r.Participants[0] == email || r.Participants[1] == email
}

// FriendOf returns the other participant from email's point of view.
func (r Room) FriendOf(email string) string {
	if r.Participants[0] == email {
		return r.Participants[1]
	}
	return r.Participants[0]
}

// User is a registered account. Email is the identity used in participant
// lists.
type User struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Image        string `json:"image,omitempty"`
	PasswordHash string `json:"-"`
}
