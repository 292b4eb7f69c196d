package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/engagekit/crm/internal/config"
	"github.com/engagekit/crm/internal/http/middleware"
	"github.com/engagekit/crm/internal/metrics"
	"github.com/engagekit/crm/internal/rabbit"
	"github.com/engagekit/crm/internal/repository"
	"github.com/engagekit/crm/internal/segment"
	"github.com/engagekit/crm/internal/service"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client, pub rabbit.Publisher) *Server {
	// repos (MySQL)
	customersRepo := repository.NewCustomersRepository(mysqlDB)
	ordersRepo := repository.NewOrdersRepository(mysqlDB)
	opsRepo := repository.NewOperationsRepository(mysqlDB)
	segmentsRepo := repository.NewSegmentsRepository(mysqlDB)
	campaignsRepo := repository.NewCampaignsRepository(mysqlDB)

	// repos (ClickHouse)
	commLogRepo := repository.NewCommLogRepository(clickhouseDB)

	// services
	producer := service.NewOrderProducer(opsRepo, ordersRepo, pub, cfg.RabbitMQ.OrderQueue)
	evaluator := segment.NewEvaluator(segment.DefaultFields(), cfg.Segmentation.StrictFields)
	audienceSvc := service.NewAudienceService(customersRepo, segmentsRepo, evaluator)
	campaignSvc := service.NewCampaignService(
		campaignsRepo, segmentsRepo, customersRepo, pub,
		cfg.RabbitMQ.DeliveryQueue, cfg.RabbitMQ.CampaignQueue,
	)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:  rds,
		RPS:    cfg.RateLimit.RPS,
		Window: time.Second,
	})

	// routes
	v1 := e.Group("/v1", rlMW)

	v1.POST("/customers", createCustomerHandler(customersRepo))
	v1.GET("/customers", listCustomersHandler(customersRepo))
	v1.GET("/customers/:id", getCustomerHandler(customersRepo))
	v1.PUT("/customers/:id", updateCustomerHandler(customersRepo))
	v1.DELETE("/customers/:id", deleteCustomerHandler(customersRepo))
	v1.GET("/customers/:id/orders", listCustomerOrdersHandler(ordersRepo, customersRepo))
	v1.GET("/customers/:id/operations", listOperationsHandler(opsRepo, customersRepo))
	v1.GET("/customers/:id/communications", listCommunicationsHandler(commLogRepo))

	v1.POST("/orders", createOrderHandler(producer))
	v1.GET("/orders/:id", getOrderHandler(ordersRepo))
	v1.PUT("/orders/:id", updateOrderHandler(producer))
	v1.DELETE("/orders/:id", deleteOrderHandler(producer))

	v1.POST("/segments", createSegmentHandler(audienceSvc))
	v1.POST("/segments/preview", previewSegmentHandler(audienceSvc))
	v1.GET("/segments/:id", getSegmentHandler(audienceSvc))
	v1.PUT("/segments/:id", updateSegmentHandler(audienceSvc))
	v1.DELETE("/segments/:id", deleteSegmentHandler(audienceSvc))
	v1.POST("/segments/:id/campaigns", sendCampaignHandler(campaignSvc))
	v1.GET("/segments/:id/campaigns", listCampaignsHandler(campaignSvc))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	log.Printf("http: listening on %s", addr)
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
