package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/sudo-init-do/lanceo/internal/backend"
	"github.com/sudo-init-do/lanceo/internal/config"
	"github.com/sudo-init-do/lanceo/internal/db"
	"github.com/sudo-init-do/lanceo/internal/localstate"
	"github.com/sudo-init-do/lanceo/internal/remote"
	"github.com/sudo-init-do/lanceo/internal/user"
	"github.com/sudo-init-do/lanceo/pkg/logger"
)

type freelancer struct {
	email   string
	profile remote.Row
}

var freelancers = []freelancer{
	{"aminata@lanceo.dev", remote.Row{
		"name": "Aminata Diop", "tagline": "Ingénieure DevOps AWS", "location": "Dakar, Sénégal",
		"hourly_rate": 85, "rating": 5.0, "reviews_count": 128, "projects_count": 142,
		"skills": []string{"AWS", "Docker", "Kubernetes", "Terraform"}, "verified": true, "available": true,
	}},
	{"chinedu@lanceo.dev", remote.Row{
		"name": "Chinedu Eze", "tagline": "Développeur Blockchain", "location": "Lagos, Nigeria",
		"hourly_rate": 110, "rating": 4.9, "reviews_count": 86, "projects_count": 91,
		"skills": []string{"Solidity", "Rust", "Web3.js"}, "verified": true, "available": false,
	}},
	{"grace@lanceo.dev", remote.Row{
		"name": "Grace Mutua", "tagline": "Développeuse mobile Flutter", "location": "Nairobi, Kenya",
		"hourly_rate": 50, "rating": 4.7, "reviews_count": 54, "projects_count": 60,
		"skills": []string{"Flutter", "Dart", "Firebase"}, "verified": false, "available": true,
	}},
	{"tunde@lanceo.dev", remote.Row{
		"name": "Tunde Bakare", "tagline": "Développeur frontend React/Vue", "location": "Accra, Ghana",
		"hourly_rate": 65, "rating": 4.8, "reviews_count": 73, "projects_count": 80,
		"skills": []string{"React", "Vue.js", "TypeScript"}, "verified": true, "available": true,
	}},
}

var projects = []remote.Row{
	{
		"title": "Marketplace NFT sur Solana", "client_id": "CryptoArt Africa",
		"description": "Création d'une place de marché NFT pour artistes africains, avec mint et royalties.",
		"budget_min": 3500, "budget_max": 8000, "skills": []string{"Solana", "Rust", "React"},
	},
	{
		"title": "Application mobile FinTech Flutter", "client_id": "PayFast",
		"description": "Application de paiement mobile avec portefeuille et transferts instantanés.",
		"budget_min": 5000, "budget_max": 12000, "skills": []string{"Flutter", "Dart", "Firebase"},
	},
	{
		"title": "Migration Prestashop vers Shopify", "client_id": "Boutique Wax",
		"description": "Migration du catalogue, des clients et des commandes vers Shopify.",
		"budget_min": 1500, "budget_max": 3000, "skills": []string{"Shopify", "PHP", "Liquid"},
	},
	{
		"title": "Tableau de bord AgriTech", "client_id": "GreenGrow",
		"description": "Tableau de bord de suivi des récoltes et capteurs IoT pour coopératives.",
		"budget_min": 2000, "budget_max": 4500, "skills": []string{"React", "Node.js", "PostgreSQL"},
	},
	{
		"title": "Bot Telegram crypto", "client_id": "#Anonyme",
		"description": "Bot d'alertes de prix et de suivi de portefeuille sur Telegram.",
		"budget_min": 800, "budget_max": 1500, "skills": []string{"Python", "Telegram API"},
	},
}

func main() {
	password := flag.String("password", "lanceo-demo", "Password given to seeded freelancer accounts")
	skipProjects := flag.Bool("skip-projects", false, "Only seed freelancer profiles")
	flag.Parse()

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
	if err := db.Ensure(ctx, pool, logger.Nop()); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	// Tokens issued while seeding are never reused.
	svc := backend.New(pool, cfg.JWTSecret, localstate.NewMemory())
	defer svc.Close()

	for _, f := range freelancers {
		name := f.profile["name"].(string)
		as, err := svc.SignUp(ctx, f.email, *password, map[string]any{"name": name, "type": user.TypeFreelance})
		if errors.Is(err, remote.ErrUserExists) {
			fmt.Printf("skipping %s: already registered\n", f.email)
			continue
		}
		if err != nil {
			log.Fatalf("failed to create %s: %v", f.email, err)
		}
		if err := svc.Update(ctx, remote.TableProfiles, f.profile, remote.Eq("id", as.User.ID)); err != nil {
			log.Fatalf("failed to fill profile for %s: %v", f.email, err)
		}
		fmt.Printf("created freelancer %s (%s)\n", name, as.User.ID)
	}

	if *skipProjects {
		return
	}
	for _, p := range projects {
		row, err := svc.Insert(ctx, remote.TableProjects, p)
		if err != nil {
			log.Fatalf("failed to insert project %q: %v", p["title"], err)
		}
		fmt.Printf("created project %s: %s\n", row["id"], p["title"])
	}
}
