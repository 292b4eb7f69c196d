package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/engagekit/crm/internal/config"
	"github.com/engagekit/crm/internal/db"
	"github.com/engagekit/crm/internal/gateway"
	"github.com/engagekit/crm/internal/logger"
	"github.com/engagekit/crm/internal/metrics"
	"github.com/engagekit/crm/internal/rabbit"
	"github.com/engagekit/crm/internal/repository"
	"github.com/engagekit/crm/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var deliveryCmd = &cobra.Command{
	Use:   "delivery",
	Short: "Run the delivery consumer (deliveryQueue + campaignQueue)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Log.Level)
		defer logger.Sync()

		metrics.MustRegister(prometheus.DefaultRegisterer)

		chDB, err := db.NewClickHouse(cfg.ClickHouse.DSN, db.SQLOpts{
			MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
			MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
			ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ClickHouse.ConnMaxIdleTime,
			PingTimeout:     cfg.ClickHouse.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("clickhouse connect: %w", err)
		}
		defer func() { _ = chDB.Close() }()

		mq, err := rabbit.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.PrefetchCount)
		if err != nil {
			return fmt.Errorf("rabbitmq connect: %w", err)
		}
		defer mq.Close()

		if err := mq.DeclareQueues(cfg.RabbitMQ.DeliveryQueue, cfg.RabbitMQ.CampaignQueue); err != nil {
			return fmt.Errorf("declare queues: %w", err)
		}

		commLogRepo := repository.NewCommLogRepository(chDB)

		deliver := buildDeliver(cfg.Delivery)

		dw := worker.NewDeliveryWorker(
			deliver,
			commLogRepo,
			cfg.RabbitMQ.DeliveryQueue,
			cfg.Delivery.Workers,
			cfg.Delivery.BatchSize,
			cfg.Delivery.BatchWait,
		)
		events := worker.NewCampaignEventConsumer(cfg.RabbitMQ.CampaignQueue)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			_ = events.Run(ctx, mq)
		}()

		log.Printf(">> delivery started queue=%s workers=%d batchSize=%d batchWait=%s",
			cfg.RabbitMQ.DeliveryQueue, dw.Workers, dw.BatchSize, dw.BatchWait)

		return dw.Run(ctx, mq)
	},
}

// buildDeliver assembles the vendor side: enabled HTTP providers behind
// the round-robin dispatcher, or the log vendor when none is configured.
func buildDeliver(cfg config.DeliveryConfig) worker.DeliverFunc {
	var senders []gateway.Sender
	for _, pc := range cfg.Providers {
		if !pc.Enabled || strings.TrimSpace(pc.BaseURL) == "" {
			continue
		}
		br := gateway.NewBreaker(pc.Breaker.FailThreshold, time.Duration(pc.Breaker.OpenForMs)*time.Millisecond)
		senders = append(senders, gateway.NewHTTPSender(
			pc.Name,
			strings.TrimRight(pc.BaseURL, "/"),
			pc.SendPath,
			time.Duration(pc.TimeoutMs)*time.Millisecond,
			br,
		))
	}
	if len(senders) == 0 {
		senders = []gateway.Sender{gateway.LogSender{}}
	}
	return gateway.NewDispatcher(senders, 2).Send
}
