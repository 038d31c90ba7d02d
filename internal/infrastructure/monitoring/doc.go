/*
Package monitoring provides metrics collection for the tag cache.

# Overview

Metrics live on a private Prometheus registry so tests can create as many
collectors as they like without colliding on the default registerer.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	metrics.RecordFetch("cached")
	store.SetObserver(metrics)

All recording methods accept a nil receiver so components can run without
a collector.
*/
package monitoring
