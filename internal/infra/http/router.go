package http

import (
	"log/slog"
	"rinha-relay/internal/application"
	"time"

	"github.com/buaazp/fasthttprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

func SetupRoutes(
	processPaymentUC PaymentSubmitter,
	getSummaryUC SummaryReader,
	logger *slog.Logger) fasthttp.RequestHandler {

	if logger == nil {
		logger = slog.Default()
	}
	handler := &Handler{
		ProcessPaymentUC: processPaymentUC,
		GetSummaryUC:     getSummaryUC,
		DefaultFrom:      application.DefaultSummaryFrom,
		DefaultTo:        application.DefaultSummaryTo,
		RequestTimeout:   5 * time.Second,
		Logger:           logger.With("component", "http"),
	}

	router := fasthttprouter.New()
	router.POST("/payments", handler.HandlePayments)
	router.POST("/purge-payments", handler.PurgePayments)
	router.GET("/payments-summary", handler.HandleSummary)
	router.GET("/health", handler.HandleHealth)
	router.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()))

	return router.Handler
}
