// Command main runs the database seeder for Farmcast.
package main

import (
	"context"
	"flag"
	"log"

	"farmcast/internal/config"
	"farmcast/internal/database"
	"farmcast/internal/seed"
)

func main() {
	opts := seed.DefaultOptions()

	// Parse command line flags
	flag.IntVar(&opts.NumUsers, "users", opts.NumUsers, "Number of users to create")
	flag.IntVar(&opts.PostsPerUser, "posts", opts.PostsPerUser, "Posts per user")
	flag.IntVar(&opts.FollowsPerUser, "follows", opts.FollowsPerUser, "Profiles each user follows")
	flag.BoolVar(&opts.ShouldClean, "clean", opts.ShouldClean, "Clean database before seeding")
	flag.Float64Var(&opts.CenterLat, "lat", opts.CenterLat, "Latitude of the seeded area")
	flag.Float64Var(&opts.CenterLon, "lon", opts.CenterLon, "Longitude of the seeded area")
	flag.Float64Var(&opts.RadiusKm, "radius", opts.RadiusKm, "Radius of the seeded area in km")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d posts each, clean=%v\n", opts.NumUsers, opts.PostsPerUser, opts.ShouldClean)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if _, err := seed.NewSeeder(db, opts).Run(context.Background()); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with demo data.")
	log.Printf("📧 All demo users have the password: %s", seed.DemoPassword)
}
