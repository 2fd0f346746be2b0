// Package seed creates demo data for development databases. Everything it
// writes goes through the repositories, so seeded rows obey the same rules
// as rows created through the API.
package seed

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPassword is used for every seeded account unless a preset overrides it.
const DefaultPassword = "password123"

// Preset describes the shape of a seeded social graph.
type Preset struct {
	Name               string  `yaml:"name"`
	Users              int     `yaml:"users"`
	PostsPerUser       int     `yaml:"posts_per_user"`
	FollowProbability  float64 `yaml:"follow_probability"`
	LikeProbability    float64 `yaml:"like_probability"`
	CommentProbability float64 `yaml:"comment_probability"`
	SaveProbability    float64 `yaml:"save_probability"`
	Password           string  `yaml:"password"`
	// Seed fixes the random source; zero picks a time-based seed.
	Seed int64 `yaml:"seed"`
}

// DefaultPreset is a small graph suitable for local development.
func DefaultPreset() Preset {
	return Preset{
		Name:               "default",
		Users:              20,
		PostsPerUser:       3,
		FollowProbability:  0.3,
		LikeProbability:    0.25,
		CommentProbability: 0.1,
		SaveProbability:    0.05,
		Password:           DefaultPassword,
	}
}

// LoadPreset reads a preset from a YAML file.
func LoadPreset(path string) (Preset, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return Preset{}, fmt.Errorf("read preset %s: %w", path, err)
	}
	return ParsePreset(raw)
}

// ParsePreset decodes YAML over DefaultPreset, so omitted keys keep their defaults.
func ParsePreset(raw []byte) (Preset, error) {
	p := DefaultPreset()
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Preset{}, fmt.Errorf("parse preset: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Preset{}, err
	}
	return p, nil
}

// Validate checks counts and probabilities.
func (p Preset) Validate() error {
	if p.Users < 1 {
		return errors.New("preset users must be at least 1")
	}
	if p.PostsPerUser < 0 {
		return errors.New("preset posts_per_user must not be negative")
	}
	for name, v := range map[string]float64{
		"follow_probability":  p.FollowProbability,
		"like_probability":    p.LikeProbability,
		"comment_probability": p.CommentProbability,
		"save_probability":    p.SaveProbability,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("preset %s must be between 0 and 1", name)
		}
	}
	if len(p.Password) < 8 {
		return errors.New("preset password must be at least 8 characters")
	}
	return nil
}
