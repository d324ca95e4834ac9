// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/rngbench/services/rng/bench"
	"github.com/AleutianAI/rngbench/services/rng/handlers"
	"github.com/AleutianAI/rngbench/services/rng/runner"
)

// Deps are the services the HTTP API serves.
type Deps struct {
	// Runner executes POST /v1/runs and lists backends. Required.
	Runner *runner.Runner

	// Store serves the run history. Nil disables /v1/runs reads.
	Store handlers.RunReader

	// Defaults fills fields a run request omits.
	Defaults bench.Config

	// Metrics serves /metrics. Nil uses the default Prometheus registry.
	Metrics http.Handler

	// Progress streams driver transitions on /v1/progress. Nil disables it.
	Progress *handlers.ProgressHub
}

// SetupRoutes registers every endpoint on router.
func SetupRoutes(router *gin.Engine, deps Deps) {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(metrics))

	v1 := router.Group("/v1")
	{
		v1.GET("/backends", handlers.ListBackends(deps.Runner.Registry(), deps.Runner.Plugin()))

		runs := v1.Group("/runs")
		{
			runs.GET("", handlers.ListRuns(deps.Store))
			runs.GET("/:id", handlers.GetRun(deps.Store))
			runs.POST("", handlers.CreateRun(deps.Runner, deps.Defaults))
		}

		if deps.Progress != nil {
			v1.GET("/progress", handlers.StreamProgress(deps.Progress))
		}
	}
}
