// Command main runs the database seeder.
package main

import (
	"context"
	"flag"
	"log"

	"skillswap/internal/bootstrap"
	"skillswap/internal/config"
	"skillswap/internal/database"
	"skillswap/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numSwaps := flag.Int("swaps", 150, "Number of swaps to create")
	shouldClean := flag.Bool("clean", true, "Remove non-admin users and all swaps before seeding")
	skipBcrypt := flag.Bool("fast", false, "Skip password hashing (seeded users cannot log in)")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Printf("Target: %d users, %d swaps, clean=%v\n", *numUsers, *numSwaps, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	db, _, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{BootstrapAdmin: true, SkipRedis: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	seeder, err := seed.NewSeeder(db, seed.Options{
		NumUsers:    *numUsers,
		NumSwaps:    *numSwaps,
		ShouldClean: *shouldClean,
		SkipBcrypt:  *skipBcrypt,
		RandSeed:    *randSeed,
	})
	if err != nil {
		log.Fatalf("❌ Seeder setup failed: %v", err)
	}

	summary, err := seeder.Run(ctx)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ Created %d users and %d swaps, recomputed %d ratings", summary.Users, summary.Swaps, summary.Rated)
	for status, n := range summary.ByStatus {
		log.Printf("   %-10s %d", status, n)
	}
	if !*skipBcrypt {
		log.Printf("📧 All seeded users have the password: %s", seed.DefaultPassword)
	}
}
