// seed inserts a test tenant, a channel, autoposting rules, and
// scheduled items into the local dev database.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Stepanishin/telepublisher-be/internal/infrastructure/postgres"
)

const (
	seedEmail    = "seed@test.local"
	seedChatID   = "@seed_channel"
	seedBotToken = "000000:TEST-TOKEN-NOT-REAL"
)

type ruleSpec struct {
	topic     string
	frequency string
	interval  int
	unit      string
	prefTime  string
	prefDays  []string
	image     bool
	dedup     bool
}

var rules = []ruleSpec{
	// Fires shortly after seeding via the custom cadence
	{topic: "Go concurrency patterns", frequency: "custom", interval: 2, unit: "minutes", dedup: true},
	// Regular daily slot
	{topic: "PostgreSQL performance tips", frequency: "daily", prefTime: "09:30", image: true, dedup: true},
	// Weekly, three preferred days
	{topic: "Telegram bot development", frequency: "weekly", prefTime: "18:00",
		prefDays: []string{"monday", "wednesday", "friday"}},
}

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set — run: direnv allow")
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	// Upsert test tenant with a generous credit balance
	var tenantID string
	err = pool.QueryRow(ctx, `
		INSERT INTO tenants (email, credits)
		VALUES ($1, 100)
		ON CONFLICT (email) DO UPDATE SET updated_at = NOW()
		RETURNING id`,
		seedEmail,
	).Scan(&tenantID)
	if err != nil {
		log.Fatalf("upsert tenant: %v", err)
	}

	// Upsert test channel
	var channelID string
	err = pool.QueryRow(ctx, `
		INSERT INTO channels (tenant_id, chat_id, title, bot_token)
		VALUES ($1, $2, 'Seed Channel', $3)
		ON CONFLICT (tenant_id, chat_id) DO UPDATE SET title = EXCLUDED.title
		RETURNING id`,
		tenantID, seedChatID, seedBotToken,
	).Scan(&channelID)
	if err != nil {
		log.Fatalf("upsert channel: %v", err)
	}

	nextScheduled := time.Now().Add(time.Minute)

	var ruleIDs []string
	for _, spec := range rules {
		var id string
		err := pool.QueryRow(ctx, `
			INSERT INTO autoposting_rules (
				tenant_id, channel_id, topic, keywords, source_urls,
				image_generation, avoid_duplication, check_days,
				frequency, custom_interval, custom_time_unit,
				preferred_time, preferred_days,
				next_scheduled, status, content_history
			) VALUES ($1, $2, $3, '{}', '{}', $4, $5, 7, $6, $7, $8, $9, $10, $11, 'active', '{}')
			RETURNING id`,
			tenantID, channelID, spec.topic, spec.image, spec.dedup,
			spec.frequency, spec.interval, spec.unit, spec.prefTime, spec.prefDays,
			nextScheduled,
		).Scan(&id)
		if err != nil {
			log.Fatalf("insert rule %q: %v", spec.topic, err)
		}
		ruleIDs = append(ruleIDs, id)
	}

	// One scheduled post due in a minute, one further out
	var postID string
	err = pool.QueryRow(ctx, `
		INSERT INTO scheduled_posts (
			tenant_id, channel_id, text, image_urls, buttons, image_position, scheduled_date
		) VALUES ($1, $2, 'Hello from the seed script', '{}', '[]', 'top', $3)
		RETURNING id`,
		tenantID, channelID, nextScheduled,
	).Scan(&postID)
	if err != nil {
		log.Fatalf("insert scheduled post: %v", err)
	}
	_, err = pool.Exec(ctx, `
		INSERT INTO scheduled_posts (
			tenant_id, channel_id, text, image_urls, buttons, image_position, scheduled_date
		) VALUES ($1, $2, 'Tomorrow''s post', '{}', '[]', 'top', $3)`,
		tenantID, channelID, time.Now().Add(24*time.Hour),
	)
	if err != nil {
		log.Fatalf("insert future post: %v", err)
	}

	var pollID string
	err = pool.QueryRow(ctx, `
		INSERT INTO scheduled_polls (
			tenant_id, channel_id, question, options, is_anonymous, scheduled_date
		) VALUES ($1, $2, 'Best Go router?', '{"gin","chi","stdlib"}', true, $3)
		RETURNING id`,
		tenantID, channelID, nextScheduled,
	).Scan(&pollID)
	if err != nil {
		log.Fatalf("insert scheduled poll: %v", err)
	}

	fmt.Println("Seed complete")
	fmt.Println()
	fmt.Printf("  Tenant:     %s\n", seedEmail)
	fmt.Printf("  Tenant ID:  %s\n", tenantID)
	fmt.Printf("  Channel ID: %s\n", channelID)
	fmt.Printf("  Rules:      %d\n", len(ruleIDs))
	for _, id := range ruleIDs {
		fmt.Printf("    %s\n", id)
	}
	fmt.Printf("  Post ID:    %s  (due ~1 minute)\n", postID)
	fmt.Printf("  Poll ID:    %s  (due ~1 minute)\n", pollID)
	fmt.Println()
	fmt.Println("How to test:")
	fmt.Println()
	fmt.Println("  Step 1 — get a JWT for the seed tenant:")
	fmt.Println()
	fmt.Printf("    curl -s -X POST http://localhost:8080/auth/magic-link \\\n")
	fmt.Printf("      -H 'Content-Type: application/json' \\\n")
	fmt.Printf("      -d '{\"email\":\"%s\"}'\n", seedEmail)
	fmt.Println()
	fmt.Println("    # Copy the token from the server log, then:")
	fmt.Println()
	fmt.Println("    curl -s 'http://localhost:8080/auth/verify?token=TOKEN'")
	fmt.Println("    # → {\"token\":\"eyJ...\"}")
	fmt.Println()
	fmt.Println("  Step 2 — list your rules:")
	fmt.Println()
	fmt.Println("    export JWT=eyJ...")
	fmt.Println("    curl -s http://localhost:8080/autoposting -H \"Authorization: Bearer $JWT\"")
	fmt.Println()
	fmt.Println("  Step 3 — wait ~1 minute for the dispatcher tick, then check history:")
	fmt.Println()
	fmt.Println("    curl -s http://localhost:8080/autoposting/RULE_ID/history -H \"Authorization: Bearer $JWT\"")
	fmt.Println()
	fmt.Println("  Note: the bot token is fake, so publishes will fail and the")
	fmt.Println("  scheduled items stay pending; history shows the gateway errors.")
}
