// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func runWatch(cmd *cobra.Command, _ []string) error {
	if err := applyBenchFlags(cmd, settings); err != nil {
		return err
	}
	plugin := settings.Plugin()
	if plugin.Path == "" {
		return errors.New("watch requires --csimd-lib")
	}
	ctx := cmd.Context()
	logger := appLogger.Slog()

	params, err := settings.BenchParams()
	if err != nil {
		return err
	}
	stack, err := newTelemetryStack(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer closeStack(stack, logger)

	store, err := openHistory(settings, false, logger)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	r, err := newRunner(settings, store, stack, nil, logger)
	if err != nil {
		return err
	}

	once := func(ctx context.Context) {
		run, err := r.Execute(ctx, params, settings.Bench.Gens)
		if run != nil {
			if perr := printRun(cmd.OutOrStdout(), run); perr != nil {
				logger.Warn("failed to print results", slog.Any("error", perr))
			}
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("benchmark run failed", slog.Any("error", err))
		}
	}

	once(ctx)
	return watchFile(ctx, plugin.Path, watchDebounce, logger, once)
}

// watchFile calls fn once per burst of changes to path, after debounce of
// quiet. It returns nil when ctx is cancelled.
//
// Description:
//
//	The parent directory is watched rather than the file, because build
//	tools usually replace a library by renaming a new file over it.
func watchFile(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, fn func(context.Context)) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(target), err)
	}
	logger.Info("watching csimd library", slog.String("path", target))

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isRewrite(event, target) {
				continue
			}
			logger.Debug("library changed", slog.String("op", event.Op.String()))
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", slog.Any("error", err))

		case <-timer.C:
			logger.Info("csimd library rebuilt, re-running benchmark")
			fn(ctx)
		}
	}
}

// isRewrite reports whether event replaced or modified target.
func isRewrite(event fsnotify.Event, target string) bool {
	name, err := filepath.Abs(event.Name)
	if err != nil || name != target {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
