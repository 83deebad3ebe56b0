// Package api wires the HTTP handlers onto a gin engine.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"onlevel-reserving/internal/api/handlers"
	"onlevel-reserving/internal/api/middleware"
	"onlevel-reserving/internal/metrics"
	"onlevel-reserving/internal/report"
	"onlevel-reserving/internal/reserving"
)

// Options carries the shared services the router needs. Nil fields get
// working defaults.
type Options struct {
	Logger   *zap.Logger
	Metrics  *metrics.Recorder
	Gatherer prometheus.Gatherer // served on /metrics; nil disables the route
	Store    *report.Store
}

func NewRouter(opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Store == nil {
		opts.Store = report.NewStore(report.DefaultTTL)
	}

	router := gin.New()
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(opts.Logger))
	router.Use(middleware.Metrics(opts.Metrics))
	router.Use(middleware.ErrorHandler())

	runner := reserving.New(opts.Logger, opts.Metrics)
	scheduleHandler := handlers.NewScheduleHandler()
	onLevelHandler := handlers.NewOnLevelHandler(runner)
	reserveHandler := handlers.NewReserveHandler(runner, opts.Store)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api/v1")
	{
		api.GET("/samples", handlers.ListSamples)
		api.POST("/triangles/xlsx", handlers.ConvertXLSX)
		api.POST("/schedule/index", scheduleHandler.BuildIndex)
		api.POST("/onlevel", onLevelHandler.OnLevel)
		api.POST("/reserve", reserveHandler.RunReserve)
		api.GET("/runs/:id", reserveHandler.GetRun)
		api.GET("/runs/:id/factors.csv", reserveHandler.GetFactorsCSV)
		api.GET("/runs/:id/rows.csv", reserveHandler.GetRowsCSV)
	}
	return router
}
