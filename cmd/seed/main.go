// Command seed populates the database with development data.
package main

import (
	"flag"
	"log"

	"commung/internal/config"
	"commung/internal/database"
	"commung/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 30, "Number of users to create")
	numCommunities := flag.Int("communities", 3, "Number of communities to create")
	postsPerBoard := flag.Int("posts", 10, "Posts per board")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Seed(db, seed.Options{
		NumUsers:       *numUsers,
		NumCommunities: *numCommunities,
		PostsPerBoard:  *postsPerBoard,
		ShouldClean:    *shouldClean,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
