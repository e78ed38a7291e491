package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	log "github.com/freundallein/sqsgateway/chassis/logging"

	"github.com/freundallein/sqsgateway/chassis/config"
	"github.com/freundallein/sqsgateway/loadgen"
)

func main() {
	appCfg, err := config.Read()
	if err != nil {
		log.WithFields(log.Fields{
			"event": "config_read_failed",
		}).Fatal(err)
	}
	log.Init("loadgen", appCfg.Gateway.LogLevel)
	log.WithFields(log.Fields{
		"event": "init_service",
	}).Info("loadgen initialized")

	cfg := &loadgen.Config{
		Target:  appCfg.Loadgen.Target,
		Queue:   appCfg.Loadgen.Queue,
		Workers: appCfg.Loadgen.Workers,
		Pause:   time.Duration(appCfg.Loadgen.PauseMs) * time.Millisecond,
		Token:   appCfg.Loadgen.Token,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	var group sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	if err := loadgen.EnsureQueue(ctx, cfg); err != nil {
		log.WithFields(log.Fields{
			"event": "create_queue_failed",
		}).Fatal(err)
	}
	stats := loadgen.Run(ctx, cfg, &group)
	<-done
	log.WithFields(log.Fields{
		"event": "ctx_cancel",
	}).Info("received syscall")
	cancel()
	group.Wait()
	log.WithFields(log.Fields{
		"event": "loadgen_stats",
	}).Info(stats)
}
