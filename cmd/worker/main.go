package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"land_course_bot/internal/models"
	"land_course_bot/internal/services"
	"land_course_bot/internal/tasks"
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

	// The worker reconciles payments end to end, so it carries the same
	// gateway, grant and notification wiring as the bot.
	api, err := tgbotapi.NewBotAPI(os.Getenv("BOT_TOKEN"))
	if err != nil {
		log.Fatalf("Failed to initialize bot: %v", err)
	}
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

	// Initialize Task Registry
	tasks.DefineTasks(paymentStore, paymentService, inviteService)
	if err := tasks.EnsureRecurringTasks(db); err != nil {
		log.Fatalf("Failed to seed recurring tasks: %v", err)
	}

	log.Println("Worker started. Waiting for next tick...")

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down worker...")
		cancel()
	}()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	// Run once on start so a fresh deployment sweeps immediately.
	processScheduledTasks(ctx, db)

	for {
		select {
		case <-ticker.C:
			processScheduledTasks(ctx, db)
		case <-ctx.Done():
			return
		}
	}
}

func processScheduledTasks(ctx context.Context, db *gorm.DB) {
	var pendingTasks []models.ScheduledTask
	now := time.Now()
	if err := db.Where("status = ? AND due <= ?", models.ScheduledTaskStatusActive, now).Find(&pendingTasks).Error; err != nil {
		log.Printf("Error fetching pending tasks: %v", err)
		return
	}

	if len(pendingTasks) == 0 {
		return
	}

	log.Printf("Found %d pending tasks.", len(pendingTasks))

	for _, task := range pendingTasks {
		if ctx.Err() != nil {
			return
		}
		executeTask(ctx, db, task)
	}
}

func executeTask(ctx context.Context, db *gorm.DB, task models.ScheduledTask) {
	log.Printf("Processing task: %s (ID: %d)", task.TaskName, task.ID)

	handler, found := tasks.GetHandler(task.TaskName)
	if !found {
		log.Printf("Task handler not found for: %s. Marking as failure.", task.TaskName)

		now := time.Now()
		db.Model(&task).Updates(map[string]interface{}{
			"status":   models.ScheduledTaskStatusFailure,
			"last_run": &now,
		})
		db.Create(&models.ScheduledTaskHistory{
			ScheduledTaskID: task.ID,
			TaskName:        task.TaskName,
			RunAt:           now,
			Status:          "handler_not_found",
			Arguments:       task.Arguments,
			Result:          map[string]interface{}{"error": "Handler not found"},
		})
		return
	}

	startTime := time.Now()
	result, err := handler(ctx, db, task)
	runtimeMs := int(time.Since(startTime).Milliseconds())

	status := "success"
	if err != nil {
		status = "failure"
		result = map[string]interface{}{"error": err.Error()}
		log.Printf("Task %s failed: %v", task.TaskName, err)
	} else {
		log.Printf("Task %s completed in %dms.", task.TaskName, runtimeMs)
	}

	db.Create(&models.ScheduledTaskHistory{
		ScheduledTaskID: task.ID,
		TaskName:        task.TaskName,
		RunAt:           startTime,
		RuntimeMs:       runtimeMs,
		Status:          status,
		Arguments:       task.Arguments,
		Result:          result,
	})

	taskUpdates := map[string]interface{}{
		"last_run": &startTime,
	}

	switch {
	case status != "success" && task.TaskType == models.ScheduledTaskTypeOneTime:
		taskUpdates["status"] = models.ScheduledTaskStatusFailure
	case task.TaskType == models.ScheduledTaskTypeOneTime:
		taskUpdates["status"] = models.ScheduledTaskStatusDone
	default:
		// Recurring tasks reschedule even after a failed run; the sweep
		// itself is idempotent.
		nextDue := task.NextDue()
		if nextDue.After(task.Due) {
			taskUpdates["status"] = models.ScheduledTaskStatusActive
			taskUpdates["due"] = nextDue
		} else {
			taskUpdates["status"] = models.ScheduledTaskStatusDone
		}
	}

	if err := db.Model(&task).Updates(taskUpdates).Error; err != nil {
		log.Printf("Failed to update task %d: %v", task.ID, err)
	}
}
