// Command seed creates the development test accounts. Safe to run more
// than once; existing accounts are left alone.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/alexedwards/argon2id"
	"github.com/campuskit/roombooking/internal/domain"
	"github.com/campuskit/roombooking/internal/repository"
	"github.com/campuskit/roombooking/pkg/config"
	"github.com/campuskit/roombooking/pkg/database"
	"github.com/campuskit/roombooking/pkg/logger"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)

	seeds := []struct {
		req      domain.RegisterRequest
		password string
	}{
		{domain.RegisterRequest{Email: "student@example.edu", FirstName: "John", LastName: "Student", Role: "student", Phone: "514-123-4567"}, "student123"},
		{domain.RegisterRequest{Email: "faculty@example.edu", FirstName: "Jane", LastName: "Professor", Role: "faculty", Phone: "514-234-5678"}, "faculty123"},
		{domain.RegisterRequest{Email: "admin@example.edu", FirstName: "Admin", LastName: "User", Role: "admin", Phone: "514-345-6789"}, "admin123"},
	}

	for _, seed := range seeds {
		hash, err := argon2id.CreateHash(seed.password, argon2id.DefaultParams)
		if err != nil {
			logger.Error("Failed to hash seed password", "error", err, "email", seed.req.Email)
			os.Exit(1)
		}

		user, err := userRepo.Create(ctx, &seed.req, hash)
		if errors.Is(err, domain.ErrDuplicateEmail) {
			logger.Info("Seed account already exists", "email", seed.req.Email)
			continue
		}
		if err != nil {
			logger.Error("Failed to create seed account", "error", err, "email", seed.req.Email)
			os.Exit(1)
		}

		logger.Info("Seed account created", "email", user.Email, "role", user.Role, "user_id", user.ID)
	}
}
