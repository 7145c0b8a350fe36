package cron

import (
	"context"
	"log"
	"time"

	"github.com/khagendra-rk/lms/model"
	"github.com/khagendra-rk/lms/utils/auth"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const jobTimeout = 5 * time.Minute

// jobFunc runs one job and returns a short summary for cron_job_logs
type jobFunc func(ctx context.Context) (string, error)

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron        *cron.Cron
	db          *gorm.DB
	blacklist   *auth.BlacklistService
	overdueDays int
	now         func() time.Time
}

// NewCronManager creates a new cron manager. Borrows open for longer than
// overdueDays are reported as overdue.
func NewCronManager(db *gorm.DB, overdueDays int) *CronManager {
	return &CronManager{
		cron:        cron.New(cron.WithSeconds()),
		db:          db,
		blacklist:   auth.NewBlacklistService(db),
		overdueDays: overdueDays,
		now:         time.Now,
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	log.Println("Starting cron jobs...")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	log.Println("Cron jobs started successfully")
	return nil
}

// Stop stops all cron jobs and waits for running ones
func (m *CronManager) Stop() {
	log.Println("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("Cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	jobs := []struct {
		schedule string
		name     string
		fn       jobFunc
	}{
		// top of every hour
		{"0 0 * * * *", "cleanup_expired_tokens", m.CleanupExpiredTokens},
		// daily at 7 AM
		{"0 0 7 * * *", "report_overdue_borrows", m.ReportOverdueBorrows},
	}

	for _, j := range jobs {
		j := j
		if _, err := m.cron.AddFunc(j.schedule, func() { m.Run(j.name, j.fn) }); err != nil {
			return err
		}
	}

	log.Printf("Registered %d cron jobs", len(jobs))
	return nil
}

// Run executes fn once and records the execution in cron_job_logs
func (m *CronManager) Run(jobName string, fn jobFunc) {
	started := m.now()
	log.Printf("[CRON] Starting job: %s at %s", jobName, started.Format(time.RFC3339))

	entry := model.CronJobLog{
		JobName:   jobName,
		Status:    "running",
		StartedAt: started,
	}
	if err := m.db.Create(&entry).Error; err != nil {
		log.Printf("[CRON] Failed to record start of %s: %v", jobName, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	message, err := fn(ctx)

	completed := m.now()
	updates := map[string]interface{}{
		"completed_at": completed,
		"duration":     completed.Sub(started).Milliseconds(),
		"message":      message,
	}
	if err != nil {
		log.Printf("[CRON] Error in job: %s - %v", jobName, err)
		updates["status"] = "failed"
		updates["error_msg"] = err.Error()
	} else {
		log.Printf("[CRON] Completed job: %s - %s", jobName, message)
		updates["status"] = "completed"
	}

	if entry.ID != 0 {
		if err := m.db.Model(&entry).Updates(updates).Error; err != nil {
			log.Printf("[CRON] Failed to record result of %s: %v", jobName, err)
		}
	}
}
