// Command seed creates an initial admin user so the API is usable on a fresh
// database. Intended for local development and first deploys.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/JonkiPro/popcorn-sub004/internal/models"
	"github.com/JonkiPro/popcorn-sub004/internal/repository"
	"github.com/JonkiPro/popcorn-sub004/pkg/config"
	"github.com/JonkiPro/popcorn-sub004/pkg/database"
)

func main() {
	var (
		email    string
		username string
		password string
		role     string
	)
	flag.StringVar(&email, "email", "admin@example.com", "account email")
	flag.StringVar(&username, "username", "admin", "account username")
	flag.StringVar(&password, "password", "", "account password (required)")
	flag.StringVar(&role, "role", string(models.RoleAdmin), "account role (USER, VERIFIER, ADMIN)")
	flag.Parse()

	if password == "" {
		log.Fatal("-password is required")
	}
	switch models.UserRole(role) {
	case models.RoleAdmin, models.RoleVerifier, models.RoleUser:
	default:
		log.Fatalf("unknown role %q", role)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer db.Close() //nolint:errcheck

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	users := repository.NewUserRepository(db)
	user := &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		Role:         models.UserRole(role),
		Active:       true,
	}
	if err := users.Create(ctx, user); err != nil {
		log.Fatalf("create user: %v", err)
	}
	log.Printf("created %s user %s (%s)", user.Role, user.Username, user.ID)
}
