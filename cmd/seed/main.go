// Command main seeds a ChirpNet database with demo users, posts and edges.
package main

import (
	"context"
	"flag"
	"log"

	"chirpnet/internal/bootstrap"
	"chirpnet/internal/config"
	"chirpnet/internal/database"
	"chirpnet/internal/seed"
)

func main() {
	preset := flag.String("preset", "default", "Preset name under seeds/ or a YAML path")
	users := flag.Int("users", 0, "Override the preset user count")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("ChirpNet database seeder")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	p, err := bootstrap.ResolvePreset(*preset)
	if err != nil {
		log.Fatalf("Failed to load preset: %v", err)
	}
	if *users > 0 {
		p.Users = *users
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s, err := seed.NewSeeder(db, p, cfg.BcryptCost)
	if err != nil {
		log.Fatalf("Failed to prepare seeder: %v", err)
	}

	ctx := context.Background()
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}
	if _, err := s.Run(ctx); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Done. All seeded users have the password: %s", p.Password)
}
