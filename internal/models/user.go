// Package models contains data structures for the application's domain models.
package models

import "time"

// User represents a registered ChirpNet account.
//
// Followers, Followings and SavedPosts are projections of the follows and
// saved_posts tables; repositories fill them before a user leaves the API.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"_id"`
	Username       string    `gorm:"uniqueIndex;not null" json:"username"`
	FullName       string    `gorm:"not null" json:"fullName"`
	Email          string    `gorm:"uniqueIndex;not null" json:"email"`
	Password       string    `gorm:"not null" json:"-"`
	Bio            string    `json:"bio"`
	ProfileImg     string    `json:"profileImg"`
	ProfileImgWebP string    `gorm:"column:profile_img_webp" json:"profileImgWebp"`
	Followers      []uint    `gorm:"-" json:"followers"`
	Followings     []uint    `gorm:"-" json:"followings"`
	SavedPosts     []uint    `gorm:"-" json:"savedPosts"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Author is the public projection of a user embedded in posts and comments.
type Author struct {
	ID         uint   `json:"_id"`
	Username   string `json:"username"`
	FullName   string `json:"fullName"`
	ProfileImg string `json:"profileImg"`
}

// AuthorOf builds the embedded author projection for u.
func AuthorOf(u User) Author {
	return Author{ID: u.ID, Username: u.Username, FullName: u.FullName, ProfileImg: u.ProfileImg}
}

// EnsureSets replaces nil relationship slices with empty ones so clients
// always receive JSON arrays.
func (u *User) EnsureSets() {
	if u.Followers == nil {
		u.Followers = []uint{}
	}
	if u.Followings == nil {
		u.Followings = []uint{}
	}
	if u.SavedPosts == nil {
		u.SavedPosts = []uint{}
	}
}

// Follow is a directed follow edge. One row is both FollowingID's entry in
// the follower's followings and FollowerID's entry in the target's followers.
type Follow struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FollowerID  uint      `gorm:"not null;uniqueIndex:idx_follower_following;index" json:"follower_id"`
	FollowingID uint      `gorm:"not null;uniqueIndex:idx_follower_following;index" json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}

// SavedPost is a bookmark of a post by a user.
type SavedPost struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_post_save" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_user_post_save;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
