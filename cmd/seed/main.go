// Package main provides a tool to register catalog apps in the roster.
//
// Usage:
//
//	go run ./cmd/seed --db workshop.db --app 550 --name "Left 4 Dead 2"
//	go run ./cmd/seed --db workshop.db --app 550 --name "Left 4 Dead 2" --enable
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"strings"

	"github.com/workshopindex/workshop-server/internal/domain"
	"github.com/workshopindex/workshop-server/internal/errors"
	"github.com/workshopindex/workshop-server/internal/store/sqlite"
)

var (
	dbPath    = flag.String("db", "workshop.db", "Path to the SQLite database file")
	appID     = flag.Int64("app", 0, "Catalog app id to register")
	name      = flag.String("name", "", "App display name")
	developer = flag.String("developer", "", "App developer")
	tags      = flag.String("tags", "", "Comma-separated known tag slugs")
	enable    = flag.Bool("enable", false, "Mark the app download-eligible")
	list      = flag.Bool("list", false, "List registered apps and exit")
)

func main() {
	flag.Parse()

	s, err := sqlite.Open(*dbPath, slog.Default())
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	if *list {
		apps, err := s.ListApps(ctx)
		if err != nil {
			log.Fatalf("Failed to list apps: %v", err)
		}
		for _, a := range apps {
			fmt.Printf("%d\t%s\tenabled=%v available=%v\n", a.ID, a.Name, a.Enabled, a.Available)
		}
		return
	}

	if *appID == 0 || *name == "" {
		log.Fatal("Both --app and --name are required")
	}

	var knownTags []string
	if *tags != "" {
		for _, t := range strings.Split(*tags, ",") {
			knownTags = append(knownTags, strings.TrimSpace(t))
		}
	}

	app := &domain.App{
		ID:        *appID,
		Name:      *name,
		Developer: *developer,
		Enabled:   *enable,
		KnownTags: knownTags,
	}
	if err := s.CreateApp(ctx, app); err != nil {
		if errors.Is(err, errors.ErrConflict) {
			log.Fatalf("App %d is already registered", *appID)
		}
		log.Fatalf("Failed to register app: %v", err)
	}

	fmt.Printf("Registered app %d (%s), enabled=%v\n", app.ID, app.Name, app.Enabled)
	fmt.Println("The server picks it up on next start, or enable it while running.")
}
