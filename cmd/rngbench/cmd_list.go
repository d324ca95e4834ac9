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
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/rngbench/cmd/rngbench/config"
	"github.com/AleutianAI/rngbench/services/rng/backend"
	"github.com/AleutianAI/rngbench/services/rng/bench"
	"github.com/AleutianAI/rngbench/services/rng/dynload"
)

func runList(cmd *cobra.Command, _ []string) error {
	writeBackendList(cmd.OutOrStdout(), backend.NewBuiltinRegistry(), settings.Plugin())
	return nil
}

// writeBackendList prints every registered tag with its reported name and
// marks the ones in the default selection.
func writeBackendList(w io.Writer, reg *backend.Registry, plugin bench.PluginConfig) {
	fmt.Fprintf(w, "%-18s%-20s%s\n", "tag", "name", "default")
	for _, tag := range reg.SortedTags() {
		b, _ := reg.Get(tag)
		fmt.Fprintf(w, "%-18s%-20s%s\n", tag, b.Name(), yesNo(slices.Contains(backend.DefaultTags, tag)))
	}

	csimd := dynload.BackendName
	if plugin.Path == "" {
		csimd += " (no --csimd-lib)"
	}
	fmt.Fprintf(w, "%-18s%-20s%s\n", backend.TagCSIMD, csimd, yesNo(true))
	fmt.Fprintf(w, "\ndefault: %s\n", strings.Join(backend.DefaultTags, ","))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func runInit(cmd *cobra.Command, args []string) error {
	path := "rngbench.yaml"
	if len(args) == 1 {
		path = args[0]
	}
	if err := config.WriteDefault(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
