// Package bootstrap wires the runtime dependencies shared by the commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"chirpnet/internal/cache"
	"chirpnet/internal/config"
	"chirpnet/internal/database"
	"chirpnet/internal/models"
	"chirpnet/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// PresetDir is where named seed presets live.
const PresetDir = "seeds"

// InitRuntime connects to the database and Redis, then seeds an empty
// database when SEED_PRESET is set outside production.
func InitRuntime(ctx context.Context, cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := seedIfEmpty(ctx, cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
	}
	return db, r, nil
}

func seedIfEmpty(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil || strings.TrimSpace(cfg.SeedPreset) == "" {
		return nil
	}
	if cfg.IsProduction() {
		log.Println("SEED_PRESET is ignored in production")
		return nil
	}

	var users int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		return nil
	}

	preset, err := ResolvePreset(cfg.SeedPreset)
	if err != nil {
		return err
	}
	s, err := seed.NewSeeder(db, preset, cfg.BcryptCost)
	if err != nil {
		return err
	}
	_, err = s.Run(ctx)
	return err
}

// ResolvePreset accepts "default", a YAML path, or the name of a file in
// PresetDir without its extension.
func ResolvePreset(name string) (seed.Preset, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "default" {
		return seed.DefaultPreset(), nil
	}
	if ext := filepath.Ext(name); ext == ".yml" || ext == ".yaml" {
		return seed.LoadPreset(name)
	}
	for _, ext := range []string{".yml", ".yaml"} {
		path := filepath.Join(PresetDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return seed.LoadPreset(path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return seed.Preset{}, err
		}
	}
	return seed.Preset{}, fmt.Errorf("unknown seed preset %q", name)
}
