package tasks

import (
	"fmt"

	"gorm.io/gorm"

	"land_course_bot/internal/models"
	"land_course_bot/internal/services"
)

// DefineTasks wires task dependencies and registers all available tasks
func DefineTasks(store services.PaymentStore, payments *services.PaymentService, invites *services.InviteService) {
	ReconcilePendingPaymentsTask.store = store
	ReconcilePendingPaymentsTask.payments = payments
	RegisterHandler(ReconcilePendingPaymentsTask.TaskID(), ReconcilePendingPaymentsTask.HandleExecution)

	ExpireInviteGrantsTask.invites = invites
	RegisterHandler(ExpireInviteGrantsTask.TaskID(), ExpireInviteGrantsTask.HandleExecution)
}

// EnsureRecurringTasks seeds one active row per recurring task so a fresh
// database starts sweeping without manual setup.
func EnsureRecurringTasks(db *gorm.DB) error {
	builders := map[string]func() (*models.ScheduledTask, error){
		ReconcilePendingPaymentsTask.TaskID(): ReconcilePendingPaymentsTask.CreateTask,
		ExpireInviteGrantsTask.TaskID():       ExpireInviteGrantsTask.CreateTask,
	}

	for name, build := range builders {
		var count int64
		err := db.Model(&models.ScheduledTask{}).
			Where("task_name = ? AND status = ?", name, models.ScheduledTaskStatusActive).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check task %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		task, err := build()
		if err != nil {
			return fmt.Errorf("failed to build task %s: %w", name, err)
		}
		if err := db.Create(task).Error; err != nil {
			return fmt.Errorf("failed to seed task %s: %w", name, err)
		}
	}
	return nil
}
