package supervisor

import (
	"context"
	"sync"
	"time"

	log "github.com/freundallein/sqsgateway/chassis/logging"

	"github.com/freundallein/sqsgateway/chassis/storage"
)

// Config ...
type Config struct {
	Repository storage.AuditRepository
	Expiration int
	Interval   time.Duration
}

func dbCleaner(ctx context.Context, cfg *Config, group *sync.WaitGroup) {
	defer group.Done()
	log.WithFields(log.Fields{
		"event": "start_db_cleaner",
	}).Info("starting db cleaner with ", cfg.Expiration, "s expiration time")
	repo := cfg.Repository
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.WithFields(log.Fields{
				"event":  "ctx_canceled",
				"worker": "db_cleaner",
			}).Info("exit goroutine")
			return
		case <-ticker.C:
			cleaned, err := repo.CleanOldEntries(ctx, cfg.Expiration)
			if err != nil {
				log.WithFields(log.Fields{
					"event":  "clean_table_failed",
					"worker": "db_cleaner",
				}).Error(err)
				continue
			}
			log.WithFields(log.Fields{
				"event":  "clean_table",
				"worker": "db_cleaner",
			}).Debug("cleaned rows: ", cleaned)
		}
	}
}

// Run starts the audit journal cleaner. It stops when ctx is canceled.
func Run(ctx context.Context, cfg *Config, group *sync.WaitGroup) {
	log.WithFields(log.Fields{
		"event": "start_service",
	}).Info("starting supervisor")
	group.Add(1)
	go dbCleaner(ctx, cfg, group)
}
