package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/mauv0809/pickup/internal/auth"
	"github.com/mauv0809/pickup/internal/community"
	"github.com/mauv0809/pickup/internal/database"
	"github.com/mauv0809/pickup/internal/match"
	"github.com/mauv0809/pickup/internal/metrics"
	"github.com/mauv0809/pickup/internal/notifier/slack"
	"github.com/mauv0809/pickup/internal/roster"
	"github.com/mauv0809/pickup/internal/user"
)

const seedPassword = "password123"

var (
	sports    = []string{"Football", "Basketball", "Volleyball", "Tennis"}
	locations = []string{"Riverside Park", "Downtown Court", "North Field", "Community Gym"}
)

func main() {
	numUsers := flag.Int("users", 12, "Number of demo users to create")
	numGames := flag.Int("games", 20, "Number of demo games to create")
	flag.Parse()

	log.Info("Starting database seeder...")
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, reading from environment variables")
	}
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "pickup.db"
	}

	db, teardown, err := database.InitDB(dbName, os.Getenv("TURSO_PRIMARY_URL"), os.Getenv("TURSO_AUTH_TOKEN"))
	if err != nil {
		log.Fatalf("Failed to open database: %s", err)
	}
	defer teardown()

	ctx := context.Background()
	users := user.New(db)
	matches := match.New(db)
	communities := community.New(db)
	metricsMock := metrics.NewMock()
	// Without a token the notifier only logs.
	rosterSvc := roster.New(matches, communities, users, slack.NewNotifier("", "", metricsMock), metricsMock, nil)

	hash, err := auth.HashPassword(seedPassword)
	if err != nil {
		log.Fatalf("Failed to hash seed password: %s", err)
	}

	ids := make([]string, 0, *numUsers)
	for i := 0; i < *numUsers; i++ {
		email := fmt.Sprintf("player%02d@pickup.dev", i+1)
		u, err := users.Create(ctx, fmt.Sprintf("Seeder Player %02d", i+1), email, hash, 1+rand.Intn(5))
		if errors.Is(err, user.ErrEmailExists) {
			u, err = users.GetByEmail(ctx, email)
		}
		if err != nil {
			log.Fatalf("Failed to create user %s: %s", email, err)
		}
		ids = append(ids, u.ID)
	}
	log.Info("Ensured demo users exist.", "count", len(ids), "password", seedPassword)
	if len(ids) < 2 {
		log.Fatal("At least two users are needed to seed games")
	}

	club, err := communities.GetByInviteCode(ctx, "PICKUP1")
	if errors.Is(err, community.ErrNotFound) {
		club, err = communities.Create(ctx, community.Community{
			Name:        "Pickup Regulars",
			Description: "Everyone who plays on weeknights",
			InviteCode:  "PICKUP1",
			CreatedBy:   ids[0],
		})
	}
	if err != nil {
		log.Fatalf("Failed to seed community: %s", err)
	}
	for _, id := range ids[1:] {
		if _, err := communities.AddMember(ctx, club.ID, id); err != nil {
			log.Fatalf("Failed to add community member: %s", err)
		}
	}
	log.Info("Seeded community", "id", club.ID, "invite_code", club.InviteCode)

	startTime := time.Now()
	formed := 0
	for i := 0; i < *numGames; i++ {
		creator := ids[rand.Intn(len(ids))]
		g, err := rosterSvc.Create(ctx, match.Match{
			Sport:      sports[rand.Intn(len(sports))],
			Location:   locations[rand.Intn(len(locations))],
			StartTime:  time.Now().Add(time.Duration(1+rand.Intn(14*24)) * time.Hour),
			MaxPlayers: 2 * (2 + rand.Intn(4)),
			CreatedBy:  creator,
		}, true)
		if err != nil {
			log.Fatalf("Failed to create game: %s", err)
		}

		joiners := rand.Intn(g.MaxPlayers)
		for _, j := range rand.Perm(len(ids))[:min(joiners, len(ids))] {
			_, result, err := rosterSvc.Join(ctx, g.ID, ids[j], "", true)
			if errors.Is(err, match.ErrFull) {
				break
			}
			if err != nil {
				log.Fatalf("Failed to join game: %s", err)
			}
			if result.TeamsFormed {
				formed++
			}
		}
	}

	log.Info("Successfully seeded games.", "games", *numGames, "teams_formed", formed, "duration", time.Since(startTime))
}
