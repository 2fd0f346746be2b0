package seed

import (
	"context"
	"fmt"
	"log"

	"chirpnet/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// postMaxDays spreads seeded posts over this many days of history.
const postMaxDays = 60

// Summary counts what a seeding run created.
type Summary struct {
	Users    int
	Posts    int
	Follows  int
	Likes    int
	Comments int
	Saves    int
}

// Seeder applies a Preset to a database.
type Seeder struct {
	db      *gorm.DB
	preset  Preset
	faker   *gofakeit.Faker
	factory *Factory
}

// NewSeeder prepares a seeder for preset. cost is the bcrypt cost used for
// the shared account password; zero selects bcrypt's default.
func NewSeeder(db *gorm.DB, preset Preset, cost int) (*Seeder, error) {
	if err := preset.Validate(); err != nil {
		return nil, err
	}
	faker := gofakeit.New(preset.Seed)
	factory, err := NewFactory(db, faker, preset.Password, cost)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, preset: preset, faker: faker, factory: factory}, nil
}

// ClearAll removes every social row, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	log.Println("Clearing existing data...")
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{
		&models.Comment{},
		&models.Like{},
		&models.SavedPost{},
		&models.Follow{},
		&models.Post{},
		&models.User{},
	} {
		if err := tx.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Run creates users and their posts, then rolls follow, like, comment and
// save edges between them using the preset probabilities.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	p := s.preset
	log.Printf("Seeding preset %q: %d users, %d posts each", p.Name, p.Users, p.PostsPerUser)

	users := make([]*models.User, 0, p.Users)
	for i := 0; i < p.Users; i++ {
		u, err := s.factory.CreateUser(ctx, i+1)
		if err != nil {
			return sum, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	sum.Users = len(users)

	posts := make([]*models.Post, 0, p.Users*p.PostsPerUser)
	for _, u := range users {
		for j := 0; j < p.PostsPerUser; j++ {
			post, err := s.factory.CreatePost(ctx, u, postMaxDays)
			if err != nil {
				return sum, fmt.Errorf("create post: %w", err)
			}
			posts = append(posts, post)
		}
	}
	sum.Posts = len(posts)

	for _, a := range users {
		for _, b := range users {
			if a.ID == b.ID || !s.roll(p.FollowProbability) {
				continue
			}
			if err := s.factory.Follow(ctx, a.ID, b.ID); err != nil {
				return sum, fmt.Errorf("follow: %w", err)
			}
			sum.Follows++
		}
	}

	for _, post := range posts {
		for _, u := range users {
			if s.roll(p.LikeProbability) {
				if err := s.factory.Like(ctx, u.ID, post.ID); err != nil {
					return sum, fmt.Errorf("like: %w", err)
				}
				sum.Likes++
			}
			if s.roll(p.CommentProbability) {
				if _, err := s.factory.Comment(ctx, u.ID, post.ID); err != nil {
					return sum, fmt.Errorf("comment: %w", err)
				}
				sum.Comments++
			}
			if u.ID != post.UserID && s.roll(p.SaveProbability) {
				if err := s.factory.Save(ctx, u.ID, post.ID); err != nil {
					return sum, fmt.Errorf("save: %w", err)
				}
				sum.Saves++
			}
		}
	}

	log.Printf("Seeded %d users, %d posts, %d follows, %d likes, %d comments, %d saves",
		sum.Users, sum.Posts, sum.Follows, sum.Likes, sum.Comments, sum.Saves)
	return sum, nil
}

func (s *Seeder) roll(probability float64) bool {
	return probability > 0 && s.faker.Float64Range(0, 1) < probability
}
