package tasks

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"land_course_bot/internal/models"
	"land_course_bot/internal/services"
)

// Reconciliation only sweeps payments that have had some time to settle;
// fresh ones are still covered by the user's own "check payment" button and
// the webhook.
const defaultReconcileAge = 10 * time.Minute

// ReconcilePendingPaymentsTaskDef polls the gateway for every payment still
// awaiting a terminal status. Together with the webhook this guarantees a
// missed notification cannot strand a paid user.
type ReconcilePendingPaymentsTaskDef struct {
	store    services.PaymentStore
	payments *services.PaymentService
}

// TaskID returns the unique identifier for this task
func (t *ReconcilePendingPaymentsTaskDef) TaskID() string {
	return "reconcile_pending_payments"
}

// CreateTask builds the recurring reconciliation sweep record
func (t *ReconcilePendingPaymentsTaskDef) CreateTask() (*models.ScheduledTask, error) {
	rule := "FREQ=MINUTELY;INTERVAL=5"
	return BuildScheduledTask(t.TaskID(), map[string]interface{}{}, time.Now(), &rule, models.ScheduledTaskTypeRecurring)
}

// HandleExecution polls every aged non-terminal payment once
func (t *ReconcilePendingPaymentsTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	age := defaultReconcileAge
	if minutes, ok := task.Arguments["older_than_minutes"].(float64); ok && minutes > 0 {
		age = time.Duration(minutes) * time.Minute
	}

	pending, err := t.store.NonTerminalOlderThan(time.Now().Add(-age))
	if err != nil {
		return nil, err
	}

	resolved := 0
	failed := 0
	for _, payment := range pending {
		if ctx.Err() != nil {
			break
		}
		status, err := t.payments.Poll(ctx, payment.GatewayPaymentID)
		if err != nil {
			var gwErr *services.GatewayError
			if errors.As(err, &gwErr) {
				// Gateway unreachable; the next sweep retries.
				log.Printf("Reconcile poll for %s failed: %v", payment.GatewayPaymentID, err)
			} else {
				log.Printf("Reconcile resolution for %s failed: %v", payment.GatewayPaymentID, err)
			}
			failed++
			continue
		}
		if status.Terminal() {
			resolved++
		}
	}

	return map[string]interface{}{
		"status":   "success",
		"swept":    len(pending),
		"resolved": resolved,
		"failed":   failed,
	}, nil
}

// ReconcilePendingPaymentsTask is the singleton, wired by DefineTasks
var ReconcilePendingPaymentsTask = &ReconcilePendingPaymentsTaskDef{}

// ExpireInviteGrantsTaskDef removes grants whose 24h window has passed, so
// the grant table only holds links that could still admit someone.
type ExpireInviteGrantsTaskDef struct {
	invites *services.InviteService
}

// TaskID returns the unique identifier for this task
func (t *ExpireInviteGrantsTaskDef) TaskID() string {
	return "expire_invite_grants"
}

// CreateTask builds the recurring grant-expiry record
func (t *ExpireInviteGrantsTaskDef) CreateTask() (*models.ScheduledTask, error) {
	rule := "FREQ=HOURLY;INTERVAL=1"
	return BuildScheduledTask(t.TaskID(), map[string]interface{}{}, time.Now(), &rule, models.ScheduledTaskTypeRecurring)
}

// HandleExecution expires outdated grants
func (t *ExpireInviteGrantsTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	expired, err := t.invites.ExpireGrants()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"status":  "success",
		"expired": expired,
	}, nil
}

// ExpireInviteGrantsTask is the singleton, wired by DefineTasks
var ExpireInviteGrantsTask = &ExpireInviteGrantsTaskDef{}
