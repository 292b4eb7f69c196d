package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/engagekit/crm/internal/config"
	"github.com/engagekit/crm/internal/db"
	"github.com/engagekit/crm/internal/logger"
	"github.com/engagekit/crm/internal/metrics"
	"github.com/engagekit/crm/internal/rabbit"
	"github.com/engagekit/crm/internal/repository"
	"github.com/engagekit/crm/internal/service"
	"github.com/engagekit/crm/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var materializerCmd = &cobra.Command{
	Use:   "materializer",
	Short: "Run the order materializer (orderQueue consumer + ledger reconciler)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Log.Level)
		defer logger.Sync()

		metrics.MustRegister(prometheus.DefaultRegisterer)

		dbx, err := db.NewMySQL(cfg.MySQL.DSN, db.SQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer dbx.Close()

		mq, err := rabbit.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.PrefetchCount)
		if err != nil {
			return fmt.Errorf("rabbitmq connect: %w", err)
		}
		defer mq.Close()

		if err := mq.DeclareQueues(cfg.RabbitMQ.OrderQueue); err != nil {
			return fmt.Errorf("declare queues: %w", err)
		}

		ordersRepo := repository.NewOrdersRepository(dbx)
		opsRepo := repository.NewOperationsRepository(dbx)

		mat := worker.NewMaterializer(ordersRepo, opsRepo, cfg.RabbitMQ.OrderQueue)
		rec := service.NewReconciler(opsRepo, cfg.Ledger.StaleAfter, cfg.Ledger.SweepInterval)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			_ = rec.Run(ctx)
		}()

		log.Printf(">> materializer started queue=%s prefetch=%d",
			cfg.RabbitMQ.OrderQueue, cfg.RabbitMQ.PrefetchCount)

		return mat.Run(ctx, mq)
	},
}
