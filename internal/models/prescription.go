package models

import (
	"strings"
	"time"
)

// Prescription is produced by one completed photo-upload/consultation cycle.
type Prescription struct {
	ID        string    `json:"_id,omitempty"`
	Contact   string    `json:"contact,omitempty"`
	Products  []string  `json:"products,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	ImageURLs []string  `json:"image_urls,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary is a one-line description for listings.
func (p Prescription) Summary() string {
	date := "undated"
	if !p.CreatedAt.IsZero() {
		date = p.CreatedAt.Format("02 Jan 2006")
	}
	if len(p.Products) == 0 {
		return date
	}
	return date + ": " + strings.Join(p.Products, ", ")
}

// Conversation is a support-chat thread attached to the user.
type Conversation struct {
	ID        string    `json:"_id,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Status    string    `json:"status,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserData is the response of GET /get-user/{contact}/with-all-data.
// A nil Prescriptions slice means the backend did not send the collection.
type UserData struct {
	User          *User          `json:"user"`
	Prescriptions []Prescription `json:"prescriptions"`
	Conversations []Conversation `json:"conversations"`
}
