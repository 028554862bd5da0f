package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/sokobiz/sokobiz/internal/config"
	creditdomain "github.com/sokobiz/sokobiz/internal/credit/domain"
	"github.com/sokobiz/sokobiz/internal/observability"
	obsmiddleware "github.com/sokobiz/sokobiz/internal/observability/logger"
	obsmetrics "github.com/sokobiz/sokobiz/internal/observability/metrics"
	obstracing "github.com/sokobiz/sokobiz/internal/observability/tracing"
	packdomain "github.com/sokobiz/sokobiz/internal/pack/domain"
	paymentdomain "github.com/sokobiz/sokobiz/internal/payment/domain"
	"github.com/sokobiz/sokobiz/internal/ratelimit"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", srv.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	creditSvc  creditdomain.Service
	packSvc    packdomain.Service
	paymentSvc paymentdomain.Service
	bucket     *ratelimit.TokenBucket
	obsMetrics *obsmetrics.Metrics
	log        *zap.Logger
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	CreditSvc  creditdomain.Service
	PackSvc    packdomain.Service
	PaymentSvc paymentdomain.Service
	Bucket     *ratelimit.TokenBucket `optional:"true"`
	ObsMetrics *obsmetrics.Metrics    `optional:"true"`
	Logger     *zap.Logger
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		creditSvc:  p.CreditSvc,
		packSvc:    p.PackSvc,
		paymentSvc: p.PaymentSvc,
		bucket:     p.Bucket,
		obsMetrics: p.ObsMetrics,
		log:        p.Logger.Named("http.server"),
	}

	svc.registerWebhookRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWebhookRoutes() {
	webhooks := s.engine.Group("/webhooks")

	webhooks.POST("/"+s.cfg.WebhookProvider,
		ratelimit.WebhookGuard(s.bucket, s.cfg.WebhookRateLimit, s.cfg.WebhookRateBurst, s.obsMetrics, s.log),
		s.HandleDepositWebhook,
	)
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	v1.GET("/packs", s.ListPacks)

	credits := v1.Group("/businesses/:business_id/credits")
	{
		credits.GET("/balance", s.GetBalance)
		credits.GET("/ledger", s.ListLedger)
		credits.POST("/consume", s.ConsumeCredit)
		credits.POST("/reverse", s.ReverseConsume)
	}
}
