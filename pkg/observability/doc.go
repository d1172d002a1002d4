// Package observability provides structured logging, Prometheus metrics, and health checks.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger("info", os.Stdout)
//	logger.WithField("port", 8080).Info("server started")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.LoginsTotal.WithLabelValues("password", "success").Inc()
//	metrics.TokenRefreshTotal.WithLabelValues("rotated").Inc()
//
// # Health Checks
//
// Configure health checker:
//
//	checker := observability.NewHealthChecker(db, redisClient, metrics)
//	router.HandleFunc("/health", checker.Readiness)
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/httputil: Request logging middleware
package observability
