package main

import (
	"log"
	"os"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"land_course_bot/internal/services"
	"land_course_bot/internal/supportbot"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Initialize Database
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db, err := services.InitDB(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	api, err := tgbotapi.NewBotAPI(os.Getenv("SUPPORT_BOT_TOKEN"))
	if err != nil {
		log.Fatalf("Failed to initialize support bot: %v", err)
	}
	log.Printf("Authorized as @%s", api.Self.UserName)

	h := supportbot.NewHandlers(api, db, parseAdminIDs(os.Getenv("ADMIN_IDS")))

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30

	log.Println("Support bot started. Listening for updates...")
	for update := range api.GetUpdatesChan(updateConfig) {
		go h.HandleUpdate(update)
	}
}

func parseAdminIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			log.Printf("Warning: skipping invalid admin id %q", part)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
