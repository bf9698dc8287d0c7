package main

import (
	"log"
	"os"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"land_course_bot/internal/bot"
	"land_course_bot/internal/handlers"
	authMiddleware "land_course_bot/internal/middleware"
	"land_course_bot/internal/services"
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

	// Initialize Redis (optional; message texts fall back to the DB)
	var cache *services.RedisCache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cache, err = services.NewRedisCache(redisURL)
		if err != nil {
			log.Printf("Warning: Redis initialization failed: %v", err)
			cache = nil
		}
	} else {
		log.Println("Warning: REDIS_URL not set, caching disabled")
	}

	// Initialize Firebase for the admin API
	authClient, err := services.InitFirebase(os.Getenv("FIREBASE_CREDENTIALS_PATH"))
	if err != nil {
		log.Printf("Warning: Firebase initialization failed: %v", err)
		log.Println("Admin API auth will not work until valid credentials are provided")
	}

	// Telegram bot
	api, err := tgbotapi.NewBotAPI(os.Getenv("BOT_TOKEN"))
	if err != nil {
		log.Fatalf("Failed to initialize bot: %v", err)
	}
	log.Printf("Authorized as @%s", api.Self.UserName)

	channelID, err := strconv.ParseInt(os.Getenv("COURSE_CHANNEL_ID"), 10, 64)
	if err != nil {
		log.Fatal("COURSE_CHANNEL_ID not set or invalid")
	}
	amountMinor, err := strconv.ParseInt(os.Getenv("COURSE_PRICE_MINOR"), 10, 64)
	if err != nil || amountMinor <= 0 {
		log.Fatal("COURSE_PRICE_MINOR not set or invalid")
	}
	courseTitle := os.Getenv("COURSE_TITLE")
	if courseTitle == "" {
		courseTitle = "Курс"
	}
	supportURL := os.Getenv("SUPPORT_URL")
	if supportURL == "" {
		supportURL = "https://t.me/" + api.Self.UserName
	}
	adminIDs := parseAdminIDs(os.Getenv("ADMIN_IDS"))

	// Services
	userService := services.NewUserService(db)
	consentService := services.NewConsentService(db)
	messageService := services.NewBotMessageService(db, cache)
	reviewService := services.NewReviewService(db)
	inviteService := services.NewInviteService(db, api, channelID)
	paymentStore := services.NewGormPaymentStore(db)
	paymentService := services.NewPaymentService(
		paymentStore,
		services.NewYooKassaService(),
		inviteService,
		services.NewTelegramNotifier(api),
		amountMinor,
		courseTitle,
	)

	if err := messageService.EnsureDefaults(bot.DefaultMessages); err != nil {
		log.Printf("Warning: failed to seed default messages: %v", err)
	}

	// Bot handlers
	botHandlers := bot.NewHandlers(bot.Config{
		API:        api,
		Sessions:   bot.NewSessionStore(),
		Users:      userService,
		Consents:   consentService,
		Payments:   paymentService,
		Messages:   messageService,
		Editor:     messageService,
		Reviews:    reviewService,
		AdminIDs:   adminIDs,
		SupportURL: supportURL,
	})

	// HTTP surface: gateway webhook + admin API
	e := echo.New()
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.HTTPErrorHandler = authMiddleware.CustomErrorHandler

	webhookHandler := handlers.NewWebhookHandler(db, cache, paymentService)
	e.POST("/yookassa/webhook", webhookHandler.HandleNotification)

	adminAPI := handlers.NewAdminAPIHandler(db)
	apiGroup := e.Group("/api/admin")
	apiGroup.Use(authMiddleware.RequireAuth(authClient))
	apiGroup.GET("/payments", adminAPI.ListPayments)
	apiGroup.GET("/grants", adminAPI.ListGrants)
	apiGroup.GET("/tickets", adminAPI.ListTickets)
	apiGroup.GET("/users/:telegram_id", adminAPI.GetUser)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	go func() {
		log.Printf("HTTP server starting on port %s", port)
		e.Logger.Fatal(e.Start(":" + port))
	}()

	// Long-polling update loop
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30

	log.Println("Bot started. Listening for updates...")
	for update := range api.GetUpdatesChan(updateConfig) {
		go botHandlers.HandleUpdate(update)
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
