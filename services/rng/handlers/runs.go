// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/rngbench/pkg/validation"
	"github.com/AleutianAI/rngbench/services/rng/backend"
	"github.com/AleutianAI/rngbench/services/rng/bench"
	"github.com/AleutianAI/rngbench/services/rng/history"
	"github.com/AleutianAI/rngbench/services/rng/runner"
)

const (
	defaultListLimit = 20
	maxListLimit     = 500
)

// RunReader is the read side of the run history.
type RunReader interface {
	Get(ctx context.Context, id string) (*history.Run, error)
	List(ctx context.Context, limit int) ([]history.Run, error)
}

// Executor runs a benchmark invocation.
type Executor interface {
	Execute(ctx context.Context, cfg bench.Config, tags []string) (*history.Run, error)
}

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// BackendInfo describes one selectable backend.
type BackendInfo struct {
	Tag       string `json:"tag"`
	Name      string `json:"name"`
	Default   bool   `json:"default"`
	Available bool   `json:"available"`
}

// ListBackends returns every registered tag plus the csimd plugin.
func ListBackends(reg *backend.Registry, plugin bench.PluginConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		defaults := make(map[string]bool, len(backend.DefaultTags))
		for _, t := range backend.DefaultTags {
			defaults[t] = true
		}

		infos := make([]BackendInfo, 0, reg.Count()+1)
		for _, tag := range reg.Tags() {
			b, _ := reg.Get(tag)
			infos = append(infos, BackendInfo{Tag: tag, Name: b.Name(), Default: defaults[tag], Available: true})
		}
		if !reg.Has(backend.TagCSIMD) {
			infos = append(infos, BackendInfo{
				Tag:       backend.TagCSIMD,
				Name:      "csimd_universal",
				Default:   true,
				Available: plugin.Path != "",
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"backends": infos,
			"defaults": backend.DefaultSelection(),
		})
	}
}

// ListRuns returns stored runs newest first. Query: limit (default 20).
func ListRuns(store RunReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history is disabled"})
			return
		}

		limit := defaultListLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > maxListLimit {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 500"})
				return
			}
			limit = n
		}

		runs, err := store.List(c.Request.Context(), limit)
		if err != nil {
			slog.Error("list runs failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
			return
		}
		if runs == nil {
			runs = []history.Run{}
		}
		c.JSON(http.StatusOK, gin.H{"runs": runs})
	}
}

// GetRun returns one stored run.
func GetRun(store RunReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history is disabled"})
			return
		}

		id := c.Param("id")
		if err := validation.ValidateRunID(id); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		run, err := store.Get(c.Request.Context(), id)
		switch {
		case errors.Is(err, history.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		case err != nil:
			slog.Error("get run failed", "run_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run"})
		default:
			c.JSON(http.StatusOK, run)
		}
	}
}

// RunRequest is the body of POST /v1/runs. Omitted fields take the
// server's defaults. Threads below 1 run a single worker.
type RunRequest struct {
	Total   *uint64  `json:"total" binding:"omitempty,min=1"`
	Threads *int     `json:"threads" binding:"omitempty,max=4096"`
	Seed    string   `json:"seed" binding:"omitempty,max=24"`
	Gens    []string `json:"gens" binding:"omitempty,max=64,dive,required"`
	Pin     *bool    `json:"pin"`
}

// apply overlays the request on defaults.
func (r RunRequest) apply(defaults bench.Config) (bench.Config, error) {
	cfg := defaults
	if r.Total != nil {
		cfg.Total = *r.Total
	}
	if r.Threads != nil {
		cfg.Workers = bench.CoerceWorkers(*r.Threads)
	}
	if r.Pin != nil {
		cfg.Pin = *r.Pin
	}
	if r.Seed != "" {
		seed, err := bench.ParseSeed(r.Seed)
		if err != nil {
			return cfg, err
		}
		cfg.Seed = seed
	}
	return cfg, nil
}

// CreateRun runs a benchmark synchronously and returns the stored run.
//
// Responses:
//   - 201: the completed run
//   - 400: malformed body, seed or generator names
//   - 409: another run is in progress
func CreateRun(exec Executor, defaults bench.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RunRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
				return
			}
		}
		if err := validation.ValidateGeneratorNames(req.Gens); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		cfg, err := req.apply(defaults)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		run, err := exec.Execute(c.Request.Context(), cfg, req.Gens)
		switch {
		case errors.Is(err, runner.ErrBusy):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, bench.ErrConfigInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case err != nil && run == nil:
			slog.Error("benchmark run failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		case err != nil:
			slog.Warn("benchmark run incomplete", "run_id", run.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "run": run})
		default:
			c.JSON(http.StatusCreated, run)
		}
	}
}
