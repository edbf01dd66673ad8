package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nsqio/go-nsq"

	"corpora/apps/backend/internal/app"
	"corpora/apps/backend/internal/config"
	"corpora/apps/backend/internal/logger"
)

func main() {
	log := slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer deps.DB.Close()
	defer deps.NSQProducer.Stop()

	a, err := app.New(cfg, deps.DB, deps.VectorStore, deps.BlobStore, deps.NSQProducer, log)
	if err != nil {
		slog.Error("failed to build app", "error", err)
		os.Exit(1)
	}

	var consumers []*nsq.Consumer
	if cfg.EnableExtractWorker {
		c, err := startConsumer(cfg, config.TopicExtractRequest, a.ExtractConsumer.HandleMessage)
		if err != nil {
			slog.Error("failed to start extract worker", "error", err)
			os.Exit(1)
		}
		consumers = append(consumers, c)
		slog.Info("extract worker connected", "topic", config.TopicExtractRequest)
	}
	if cfg.EnableIndexWorker {
		c, err := startConsumer(cfg, config.TopicChunkIndex, a.IndexConsumer.HandleMessage)
		if err != nil {
			slog.Error("failed to start index worker", "error", err)
			os.Exit(1)
		}
		consumers = append(consumers, c)
		slog.Info("index worker connected", "topic", config.TopicChunkIndex)
	}
	defer func() {
		for _, c := range consumers {
			c.Stop()
		}
	}()

	if !cfg.EnableAPI {
		slog.Info("api disabled, running workers only")
		<-ctx.Done()
		return
	}

	if err := a.Run(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func startConsumer(cfg *config.Config, topic string, handle func(*nsq.Message) error) (*nsq.Consumer, error) {
	c, err := nsq.NewConsumer(topic, "backend", nsq.NewConfig())
	if err != nil {
		return nil, err
	}
	c.AddHandler(nsq.HandlerFunc(handle))
	if err := c.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
		return nil, err
	}
	return c, nil
}
