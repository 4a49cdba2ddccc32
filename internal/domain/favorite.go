package domain

import "time"

type Favorite struct {
	UserID      string    `bson:"user_id" json:"-"`
	BookID      string    `bson:"book_id" json:"book_id"`
	Title       string    `bson:"title" json:"title"`
	Thumbnail   string    `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Authors     string    `bson:"authors,omitempty" json:"authors,omitempty"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}
