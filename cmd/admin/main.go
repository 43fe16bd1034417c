// Package main provides account administration utilities for SkillSwap operators.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"skillswap/internal/config"
	"skillswap/internal/database"
	"skillswap/internal/models"
	"skillswap/internal/repository"
	"skillswap/internal/service"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/admin promote <email>     - Grant the admin role")
		fmt.Println("  go run ./cmd/admin demote <email>      - Revoke the admin role")
		fmt.Println("  go run ./cmd/admin list-admins         - List all admins")
		fmt.Println("  go run ./cmd/admin recompute-ratings   - Rebuild every user's rating")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	ctx := context.Background()
	store := repository.NewStore(db, nil, 0)

	switch os.Args[1] {
	case "promote", "demote":
		if len(os.Args) < 3 {
			log.Fatalf("Usage: %s <email>", os.Args[1])
		}
		role := models.RoleAdmin
		if os.Args[1] == "demote" {
			role = models.RoleUser
		}
		setRole(ctx, store.Repositories(), os.Args[2], role)
	case "list-admins":
		listAdmins(ctx, store.Repositories())
	case "recompute-ratings":
		n, err := service.RatingAggregator{}.RecomputeAll(ctx, store)
		if err != nil {
			log.Fatalf("Failed to recompute ratings after %d users: %v", n, err)
		}
		fmt.Printf("Recomputed ratings for %d users\n", n)
	default:
		log.Fatalf("Unknown command: %s", os.Args[1])
	}
}

func setRole(ctx context.Context, repos repository.Repositories, email string, role models.Role) {
	user, err := repos.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		log.Fatalf("Failed to look up user: %v", err)
	}
	if user == nil {
		log.Fatalf("No user with email %s", email)
	}
	if user.Role == role {
		fmt.Printf("%s already has role %s\n", user.Email, role)
		return
	}
	if err := repos.Users.Update(ctx, user.ID, map[string]interface{}{"role": role}); err != nil {
		log.Fatalf("Failed to update role: %v", err)
	}
	fmt.Printf("%s (ID %d) is now %s\n", user.Email, user.ID, role)
}

func listAdmins(ctx context.Context, repos repository.Repositories) {
	admins, total, err := repos.Users.FindMany(ctx, repository.UserFilter{Role: models.RoleAdmin},
		repository.Page{Number: 1, Size: repository.MaxPageSize})
	if err != nil {
		log.Fatalf("Failed to list admins: %v", err)
	}
	if total == 0 {
		fmt.Println("No admins found")
		return
	}

	fmt.Println("Current admins:")
	fmt.Println("-------------------------------------")
	for _, admin := range admins {
		fmt.Printf("ID: %d | Name: %s | Email: %s | Active: %t\n", admin.ID, admin.Name, admin.Email, admin.IsActive)
	}
	fmt.Println("-------------------------------------")
}
