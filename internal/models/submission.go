package models

import "time"

// Submission is a stored form submission: who sent it and the references of
// the images they attached, in upload order.
type Submission struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	SocialHandle string    `json:"socialHandle"`
	Images       []string  `json:"images"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Listing is every stored submission plus the total count.
type Listing struct {
	Users []Submission `json:"users"`
	Total int          `json:"totalUsers"`
}
