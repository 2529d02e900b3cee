package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"applog/pkg/api"
	"applog/pkg/config"
	"applog/pkg/logger"
)

func main() {
	cfg, err := config.Load("cmd/server/config.toml", os.Args[1:])
	if err != nil {
		log.Fatalf("[server] failed to load config: %v", err)
	}
	log.SetLevel(cfg.Level())

	appLog, err := logger.New(logger.Config{Dir: cfg.LogDir, Dev: cfg.Dev})
	if err != nil {
		log.Fatalf("[server] failed to create logger: %v", err)
	}
	appLog.Debug("development mode enabled", map[string]string{"logFile": appLog.Path()})

	var kw api.MessageWriter
	if cfg.Kafka() {
		w := &kafka.Writer{
			Addr:      kafka.TCP(cfg.KafkaAddr),
			Topic:     cfg.KafkaTopic,
			BatchSize: cfg.KafkaBatch,
		}
		defer w.Close()
		if err := createTopic(w.Addr.String(), w.Topic); err != nil {
			log.Warnf("[server] failed to create Kafka topic: %v", err)
		}
		kw = w
	} else {
		log.Warnf("[server] kafka was not configured, access entries will not be sent to Kafka")
	}

	api, err := api.New(cfg.ServiceName, appLog, kw)
	if err != nil {
		log.Fatalf("[server] failed to create API: %v", err)
	}
	api.TrustProxy = cfg.TrustProxy

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.Handler(),
	}

	go func() {
		appLog.Success("server started", map[string]string{"addr": cfg.HTTPAddr, "service": cfg.ServiceName})
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("server failed", map[string]string{"error": err.Error()})
			log.Fatalf("[server] failed to start: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownRelease()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Warn("HTTP server shutdown error", map[string]string{"error": err.Error()})
	} else {
		appLog.Info("HTTP server shut down gracefully", nil)
	}
}

func createTopic(broker, topic string) error {
	conn, err := kafka.DialContext(context.Background(), "tcp", broker)
	if err != nil {
		return err
	}
	defer conn.Close()

	return conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
}
