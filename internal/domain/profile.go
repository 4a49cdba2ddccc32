package domain

import "time"

type Profile struct {
	UserID     string    `json:"user_id"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	PictureRef string    `json:"picture_ref,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}
