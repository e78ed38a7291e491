package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	log "github.com/freundallein/sqsgateway/chassis/logging"

	"github.com/freundallein/sqsgateway/chassis/config"
	"github.com/freundallein/sqsgateway/chassis/keyserver"
	"github.com/freundallein/sqsgateway/chassis/monkey"
	"github.com/freundallein/sqsgateway/chassis/queue"
	"github.com/freundallein/sqsgateway/chassis/storage"
	"github.com/freundallein/sqsgateway/gateway"
	"github.com/freundallein/sqsgateway/supervisor"
)

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func initRepository(ctx context.Context, appCfg *config.AppConfig) storage.AuditRepository {
	if appCfg.Storage.DSN == "" {
		log.WithFields(log.Fields{
			"event": "init_storage",
		}).Info("no storage dsn configured, audit journal disabled")
		return storage.NopRepository{}
	}
	repo, err := storage.InitPGRepository(ctx, storage.Config{DSN: appCfg.Storage.DSN})
	if err != nil {
		log.WithFields(log.Fields{
			"event": "init_storage_failed",
		}).Fatal(err)
	}
	return repo
}

func initConnector(appCfg *config.AppConfig) *queue.AWSConnector {
	queueCfg := queue.Config{
		Region:             appCfg.AWS.Region,
		Endpoint:           appCfg.AWS.Endpoint,
		CredentialsFile:    appCfg.AWS.CredentialsFile,
		CredentialsProfile: appCfg.AWS.CredentialsProfile,
		Retries:            appCfg.AWS.Retries,
		VisibilityTimeout:  appCfg.Queue.VisibilityTimeout,
		ReadWaitSeconds:    appCfg.Queue.ReadWaitSeconds,
	}
	var keys queue.KeySource
	if appCfg.AWS.CredentialsSource == config.CredentialsKeyServer {
		log.WithFields(log.Fields{
			"event": "init_keyserver",
			"url":   appCfg.Keyserver.URL,
		}).Warn("credentials are fetched from the key server on every request")
		keys = keyserver.New(appCfg.Keyserver.URL, seconds(appCfg.Keyserver.Timeout))
	}
	m := monkey.New(appCfg.Chaos.ErrorChance)
	if m != nil {
		log.WithFields(log.Fields{
			"event":  "init_monkey",
			"chance": appCfg.Chaos.ErrorChance,
		}).Warn("queue client fault injection enabled")
	}
	return queue.NewAWSConnector(queueCfg, keys, m)
}

func main() {
	appCfg, err := config.Read()
	if err != nil {
		log.WithFields(log.Fields{
			"event": "config_read_failed",
		}).Fatal(err)
	}
	log.Init("gateway", appCfg.Gateway.LogLevel)
	log.WithFields(log.Fields{
		"event": "init_service",
	}).Info("service initialized")

	var group sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	repo := initRepository(ctx, appCfg)
	supervisor.Run(ctx, &supervisor.Config{
		Repository: repo,
		Expiration: appCfg.Supervisor.Expiration,
		Interval:   seconds(appCfg.Supervisor.Interval),
	}, &group)

	gw := gateway.New(&gateway.Config{
		Connector:  initConnector(appCfg),
		Repository: repo,
		AuthSecret: appCfg.Gateway.AuthSecret,
	})
	srv := &http.Server{
		Addr:         appCfg.Gateway.Addr,
		Handler:      gw,
		ReadTimeout:  seconds(appCfg.Gateway.ReadTimeout),
		WriteTimeout: seconds(appCfg.Gateway.WriteTimeout),
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithFields(log.Fields{
			"event": "start_server",
			"addr":  srv.Addr,
		}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithFields(log.Fields{
				"event": "listen_failed",
			}).Error(err)
			done <- syscall.SIGTERM
		}
	}()
	<-done
	log.WithFields(log.Fields{
		"event": "ctx_cancel",
	}).Info("received syscall")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), seconds(appCfg.Gateway.ShutdownTimeout))
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithFields(log.Fields{
			"event": "shutdown_failed",
		}).Error(err)
	}
	cancel()
	group.Wait()
	repo.Close()
}
