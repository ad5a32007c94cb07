// Package observability provides structured logging, Prometheus metrics, health
// checks, OpenTelemetry setup and graceful shutdown for the forum binaries.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("topic_id", id).Info("topic created")
//
// Loggers derived with WithField share one level, so SetLevel on the root
// logger (for example from a config file watcher) applies everywhere.
// Request handlers use FromContext, which adds request_id and user_id.
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//	metrics.RecordAuthAttempt("success")
//
// HTTP series are labelled with the mux route template, not the raw path.
// The Record helpers accept a nil *Metrics.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	checker.AddCheck("nats", publisher.Ping, false)
//	observability.RegisterHealthRoutes(mux, checker)
//
// # Tracing
//
// Spans are exported over OTLP/gRPC; there is no OTLP metrics pipeline.
//
//	tracing, err := observability.StartTracing(ctx, cfg, logger)
//	defer tracing.Shutdown(ctx)
//	ctx, span := observability.Tracer().Start(ctx, "forum.CreateTopic")
package observability
