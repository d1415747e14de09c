package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"navyaJuicesAPI/internal/notification"
)

// pushJob carries one persisted notification to the worker pool for device
// delivery. The row is already in the database; only the push is deferred.
type pushJob struct {
	userID  uuid.UUID
	title   string
	message string
	data    map[string]any
}

// NotificationDispatcher moves push delivery off the request path. Order and
// challenge handlers only pay for the insert; FCM round-trips happen on the
// worker pool.
type NotificationDispatcher struct {
	service  *NotificationService
	workers  int
	jobQueue chan *pushJob
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewNotificationDispatcher(service *NotificationService) *NotificationDispatcher {
	d := &NotificationDispatcher{
		service:  service,
		workers:  4,
		jobQueue: make(chan *pushJob, 100),
		stopChan: make(chan struct{}),
	}
	d.startWorkers()

	go d.maintenanceLoop()

	return d
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			d.processJob(job)
		case <-d.stopChan:
			return
		}
	}
}

func (d *NotificationDispatcher) processJob(job *pushJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tokens, err := d.service.getDeviceTokens(ctx, job.userID)
	if err != nil {
		log.Printf("Failed to load device tokens for user %s: %v", job.userID, err)
		return
	}
	if len(tokens) == 0 || d.service.pushProvider == nil {
		return
	}

	if err := d.service.pushProvider.SendPush(ctx, tokens, job.title, job.message, job.data); err != nil {
		log.Printf("Push delivery failed for user %s: %v", job.userID, err)
	}
}

// enqueue hands a push to the pool without ever blocking the caller. A full
// queue drops the push; the in-app notification row is already saved.
func (d *NotificationDispatcher) enqueue(job *pushJob) {
	select {
	case d.jobQueue <- job:
	default:
		log.Printf("Push queue full, dropping push for user %s", job.userID)
	}
}

// maintenanceLoop runs the daily chores: prune old read notifications and
// nudge users whose check-in day has arrived.
func (d *NotificationDispatcher) maintenanceLoop() {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			d.cleanupOldNotifications(ctx)
			d.sendCheckInReminders(ctx)
			cancel()
		case <-d.stopChan:
			return
		}
	}
}

func (d *NotificationDispatcher) cleanupOldNotifications(ctx context.Context) {
	ct, err := d.service.db.Exec(ctx,
		`DELETE FROM notifications WHERE is_read = true AND created_at < NOW() - INTERVAL '30 days'`)
	if err != nil {
		log.Printf("Notification cleanup failed: %v", err)
		return
	}
	if ct.RowsAffected() > 0 {
		log.Printf("Cleaned up %d old notifications", ct.RowsAffected())
	}
}

// sendCheckInReminders nudges active enrollments whose current day slot is due.
func (d *NotificationDispatcher) sendCheckInReminders(ctx context.Context) {
	rows, err := d.service.db.Query(ctx, `
		SELECT e.user_id, cd.title
		FROM challenge_enrollments e
		JOIN challenge_definitions cd ON cd.id = e.challenge_id
		WHERE e.status = 'active'
		  AND e.start_date + (e.current_day - 1) * INTERVAL '1 day' <= NOW()
	`)
	if err != nil {
		log.Printf("Failed to load enrollments for reminders: %v", err)
		return
	}

	type reminder struct {
		userID uuid.UUID
		title  string
	}
	var due []reminder
	for rows.Next() {
		var r reminder
		if err := rows.Scan(&r.userID, &r.title); err != nil {
			log.Printf("Failed to scan reminder row: %v", err)
			continue
		}
		due = append(due, r)
	}
	rows.Close()

	for _, r := range due {
		err := d.service.CreateNotification(ctx, &notification.CreateNotificationRequest{
			UserID:  r.userID,
			Type:    notification.TypeChallengeReminder,
			Title:   "Don't break your streak",
			Message: fmt.Sprintf("Today's check-in for %s is waiting.", r.title),
		})
		if err != nil {
			log.Printf("Failed to create reminder for user %s: %v", r.userID, err)
		}
	}
}

// Stop drains the worker pool. Queued pushes that have not started are dropped.
func (d *NotificationDispatcher) Stop() {
	close(d.stopChan)
	d.wg.Wait()
}
