package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/sudo-init-do/lanceo/internal/config"
	"github.com/sudo-init-do/lanceo/internal/db"
	"github.com/sudo-init-do/lanceo/internal/user"
)

func main() {
	email := flag.String("email", "", "Email of the account to update")
	role := flag.String("role", "", "Marketplace side: client or provider")
	flag.Parse()

	if *email == "" || (*role != string(user.RoleClient) && *role != string(user.RoleProvider)) {
		log.Fatalf("usage: go run cmd/adminutil/set_role/main.go -email user@example.com -role client|provider")
	}

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatalf("database_url is not configured")
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	ct, err := pool.Exec(ctx, `
		UPDATE profiles p SET type = $2
		FROM auth_users u
		WHERE u.id = p.id AND lower(u.email) = lower($1)
	`, *email, user.Role(*role).RemoteType())
	if err != nil {
		log.Fatalf("failed to update role: %v", err)
	}

	if ct.RowsAffected() == 0 {
		log.Fatalf("no profile found for email: %s", *email)
	}

	fmt.Printf("User %s is now a %s.\n", *email, *role)
}
