package seed

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"chirpnet/internal/models"
	"chirpnet/internal/repository"
	"chirpnet/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Factory builds demo entities and persists them through the repositories.
type Factory struct {
	users   repository.UserRepository
	posts   repository.PostRepository
	follows repository.FollowRepository
	faker   *gofakeit.Faker

	passwordHash string
}

// NewFactory hashes password once with cost and binds the repositories to db.
func NewFactory(db *gorm.DB, faker *gofakeit.Faker, password string, cost int) (*Factory, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	return &Factory{
		users:        repository.NewUserRepository(db),
		posts:        repository.NewPostRepository(db),
		follows:      repository.NewFollowRepository(db),
		faker:        faker,
		passwordHash: string(hash),
	}, nil
}

// CreateUser persists a user with a generated name. The username carries n
// so that names stay unique within one run.
func (f *Factory) CreateUser(ctx context.Context, n int, overrides ...func(*models.User)) (*models.User, error) {
	first, last := f.faker.FirstName(), f.faker.LastName()
	username := usernameFor(first+last, n)
	taken, err := f.users.UsernameTaken(ctx, username, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		username = usernameFor(first+last, n*10000+f.faker.Number(1000, 9999))
	}

	user := &models.User{
		Username: username,
		FullName: truncateRunes(first+" "+last, validation.MaxFullNameLen),
		Email:    strings.ToLower(username) + "@chirpnet.dev",
		Password: f.passwordHash,
		Bio:      truncateRunes(f.faker.Sentence(10), validation.MaxBioLen),
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePost persists a post by author. Roughly half the posts get a
// placeholder image URL.
func (f *Factory) CreatePost(ctx context.Context, author *models.User, maxDays int) (*models.Post, error) {
	post := &models.Post{
		UserID:      author.ID,
		Description: truncateRunes(f.faker.Paragraph(1, 2, 8, " "), validation.MaxDescriptionLen),
	}
	if f.faker.Bool() {
		post.Image = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", f.faker.UUID())
	}
	if maxDays > 0 {
		back := time.Duration(f.faker.Number(0, maxDays*24*60)) * time.Minute
		post.CreatedAt = time.Now().Add(-back)
	}
	if err := f.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Follow creates the follower->following edge if it does not exist yet.
func (f *Factory) Follow(ctx context.Context, followerID, followingID uint) error {
	exists, err := f.follows.IsFollowing(ctx, followerID, followingID)
	if err != nil || exists {
		return err
	}
	_, err = f.follows.Toggle(ctx, followerID, followingID)
	return err
}

// Like adds userID's like to postID. Callers only like a post once.
func (f *Factory) Like(ctx context.Context, userID, postID uint) error {
	_, err := f.posts.ToggleLike(ctx, userID, postID)
	return err
}

// Save bookmarks postID for userID. Callers only save a post once.
func (f *Factory) Save(ctx context.Context, userID, postID uint) error {
	_, err := f.posts.ToggleSave(ctx, userID, postID)
	return err
}

// Comment adds a generated comment by userID to postID.
func (f *Factory) Comment(ctx context.Context, userID, postID uint) (*models.Comment, error) {
	c := &models.Comment{
		PostID:      postID,
		UserID:      userID,
		Description: truncateRunes(f.faker.Sentence(f.faker.Number(3, 12)), validation.MaxCommentLen),
	}
	if err := f.posts.AddComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// usernameFor keeps the ASCII letters and digits of base and appends n.
func usernameFor(base string, n int) string {
	var b strings.Builder
	for _, r := range base {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	name := b.String()
	if name == "" {
		name = "user"
	}
	suffix := fmt.Sprintf("_%d", n)
	if limit := validation.MaxUsernameLen - len(suffix); len(name) > limit {
		name = name[:limit]
	}
	return name + suffix
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return strings.TrimSpace(string(r[:limit]))
}
