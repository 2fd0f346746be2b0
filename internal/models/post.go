package models

import "time"

// Post represents a post with an optional image and description.
type Post struct {
	ID          uint   `gorm:"primaryKey" json:"_id"`
	UserID      uint   `gorm:"not null;index" json:"-"`
	User        User   `gorm:"foreignKey:UserID" json:"-"`
	Author      Author `gorm:"-" json:"userId"`
	Image       string `json:"image"`
	ImageWebP   string `gorm:"column:image_webp" json:"imageWebp"`
	Description string `gorm:"type:text" json:"description"`
	// Likes is not persisted; projected from the likes table
	Likes     []uint    `gorm:"-" json:"likes"`
	Comments  []Comment `gorm:"foreignKey:PostID" json:"comments"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Comment is a single entry in a post's ordered comment list.
type Comment struct {
	ID          uint      `gorm:"primaryKey" json:"_id"`
	PostID      uint      `gorm:"not null;index" json:"post"`
	UserID      uint      `gorm:"not null;index" json:"-"`
	User        User      `gorm:"foreignKey:UserID" json:"-"`
	Author      Author    `gorm:"-" json:"user"`
	Description string    `gorm:"type:text;not null" json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Like records that a user likes a post.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_user_post;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Project fills the embedded author projections from the preloaded users and
// guarantees non-nil slices for JSON output.
func (p *Post) Project() {
	p.Author = AuthorOf(p.User)
	if p.Likes == nil {
		p.Likes = []uint{}
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
	for i := range p.Comments {
		p.Comments[i].Author = AuthorOf(p.Comments[i].User)
	}
}
