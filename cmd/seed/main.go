package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Bcardoso2/mycar/internal/auctionerrors"
	"github.com/Bcardoso2/mycar/internal/config"
	"github.com/Bcardoso2/mycar/internal/db"
	"github.com/Bcardoso2/mycar/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func strPtr(s string) *string { return &s }

var sampleAuctions = []models.Auction{
	{Make: "Volkswagen", Model: "Gol 1.0", Year: 2018, Color: strPtr("Prata"), YardCity: strPtr("São Paulo"), YardState: strPtr("SP"), StartingBid: decimal.NewFromInt(28000)},
	{Make: "Fiat", Model: "Argo Drive", Year: 2021, Color: strPtr("Branco"), YardCity: strPtr("Campinas"), YardState: strPtr("SP"), StartingBid: decimal.NewFromInt(52000)},
	{Make: "Chevrolet", Model: "Onix LT", Year: 2019, Color: strPtr("Preto"), YardCity: strPtr("Curitiba"), YardState: strPtr("PR"), StartingBid: decimal.NewFromInt(45500)},
	{Make: "Toyota", Model: "Corolla XEi", Year: 2020, Color: strPtr("Cinza"), YardCity: strPtr("Belo Horizonte"), YardState: strPtr("MG"), StartingBid: decimal.NewFromInt(98000)},
}

// Seed the database with an administrator and a few open auctions
func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	adminEmail := flag.String("admin-email", "admin@mycar.local", "administrator email")
	adminPassword := flag.String("admin-password", os.Getenv("SEED_ADMIN_PASSWORD"), "administrator password")
	flag.Parse()

	if *adminPassword == "" {
		log.Fatal("Set -admin-password or SEED_ADMIN_PASSWORD")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	database, err := db.NewDB(ctx, cfg.DatabaseURL, db.Options{MaxConns: 2})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(ctx)

	// Create the administrator if it doesn't exist
	_, err = database.GetUserByEmail(ctx, *adminEmail)
	switch {
	case err == nil:
		fmt.Printf("Administrator %s already exists.\n", *adminEmail)
	case errors.Is(err, auctionerrors.ErrNotFound):
		hash, err := bcrypt.GenerateFromPassword([]byte(*adminPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("Failed to hash password: %v", err)
		}
		admin, err := database.CreateUser(ctx, &models.User{
			UUID:         uuid.New(),
			Name:         "Administrador",
			Email:        *adminEmail,
			PasswordHash: string(hash),
			Role:         models.RoleAdmin,
		})
		if err != nil {
			log.Fatalf("Failed to create administrator: %v", err)
		}
		fmt.Printf("Created administrator %s (id %d).\n", admin.Email, admin.ID)
	default:
		log.Fatalf("Failed to check administrator: %v", err)
	}

	// Skip auctions if some already exist
	_, total, err := database.ListAuctions(ctx, models.AuctionFilter{Limit: 1, Now: time.Now()})
	if err != nil {
		log.Fatalf("Failed to check auctions: %v", err)
	}
	if total > 0 {
		fmt.Printf("Database already has %d auctions. No need to seed.\n", total)
		return
	}

	for i, a := range sampleAuctions {
		a.Visible = true
		a.EndsAt = time.Now().Add(time.Duration(i+1) * 24 * time.Hour)
		created, err := database.CreateAuction(ctx, &a)
		if err != nil {
			log.Fatalf("Failed to create auction %s %s: %v", a.Make, a.Model, err)
		}
		fmt.Printf("Created auction %d: %s %s ending %s\n", created.ID, created.Make, created.Model, created.EndsAt.Format(time.RFC3339))
	}

	fmt.Println("Database seeded successfully!")
}
