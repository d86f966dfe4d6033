package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"circles/backend/internal/graph"
	"circles/backend/internal/social"
	"circles/backend/pkg/config"
	"circles/backend/pkg/logger"
)

// Seeds a demo social graph: three people, one circle, one event.
func main() {
	wipe := flag.Bool("wipe", false, "Delete all existing nodes before seeding")
	flag.Parse()

	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting database seeding...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	ctx := context.Background()
	defer driver.Close(ctx)

	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	if *wipe {
		session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
		_, err := session.Run(ctx, "MATCH (n) DETACH DELETE n", nil)
		session.Close(ctx)
		if err != nil {
			log.Fatal("Failed to wipe database", zap.Error(err))
		}
		log.Info("Wiped existing data")
	}

	engine := social.NewEngine(graph.NewStore(driver))

	ann := &social.Person{DisplayName: "Ann", Email: "ann@example.com"}
	bob := &social.Person{DisplayName: "Bob", Email: "bob@example.com"}
	cam := &social.Person{DisplayName: "Cam", Email: "cam@example.com"}
	for _, p := range []*social.Person{ann, bob, cam} {
		if err := engine.CreatePerson(ctx, p); err != nil {
			log.Fatal("Failed to create person", zap.String("name", p.DisplayName), zap.Error(err))
		}
		log.Info("Created person", zap.String("name", p.DisplayName), zap.String("id", p.ID))
	}

	circle := &social.Circle{
		DisplayName:    "Weekend Crew",
		Description:    "Demo circle",
		OwnerID:        ann.ID,
		MembersCanPing: true,
		Members:        []string{ann.ID, bob.ID, cam.ID},
	}
	if err := engine.CreateCircle(ctx, circle); err != nil {
		log.Fatal("Failed to create circle", zap.Error(err))
	}
	log.Info("Created circle", zap.String("id", circle.ID))

	start := time.Now().Add(48 * time.Hour).Truncate(time.Hour)
	event := &social.Event{
		DisplayName: "Picnic",
		Location:    "Riverside Park",
		Start:       start,
		End:         start.Add(3 * time.Hour),
		OwnerID:     ann.ID,
		CircleID:    circle.ID,
	}
	if err := engine.CreateEvent(ctx, event); err != nil {
		log.Fatal("Failed to create event", zap.Error(err))
	}
	log.Info("Created event", zap.String("id", event.ID), zap.Int("invitees", len(event.Invitees)))

	log.Info("Seeding complete")
}
