package services

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

const storageSweepTag = "storage-sweep"

// CronService runs periodic maintenance jobs.
type CronService struct {
	scheduler *gocron.Scheduler
	logger    *slog.Logger
}

// NewCronService creates a scheduler; jobs are added before Start.
func NewCronService(logger *slog.Logger) *CronService {
	if logger == nil {
		logger = slog.Default()
	}
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	s.SingletonModeAll()

	return &CronService{scheduler: s, logger: logger}
}

// ScheduleStorageSweep removes artifacts older than maxAge every interval.
// Requests interrupted mid-flight leave their artifact behind; this reclaims them.
func (c *CronService) ScheduleStorageSweep(storage *FileStorageManager, interval, maxAge time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}

	_, err := c.scheduler.Every(interval).Tag(storageSweepTag).Do(func() {
		removed, err := storage.SweepStale(maxAge)
		if err != nil {
			c.logger.Error("Storage sweep failed", slog.String("error", err.Error()))
			return
		}
		if removed > 0 {
			c.logger.Info("Storage sweep removed stale artifacts",
				slog.Int("removed", removed),
				slog.String("dir", storage.Dir()))
		}
	})
	return err
}

// Jobs returns the number of scheduled jobs.
func (c *CronService) Jobs() int {
	return len(c.scheduler.Jobs())
}

func (c *CronService) Start() {
	c.logger.Info("Starting cron service", slog.Int("jobs", c.Jobs()))
	c.scheduler.StartAsync()
}

func (c *CronService) Stop() {
	c.scheduler.Stop()
	c.logger.Info("Stopped cron service")
}
