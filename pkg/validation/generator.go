// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation checks user-provided names before they reach storage
// keys, metric labels, or Influx tags.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// generatorPattern matches selection tags: lowercase letters, digits, and
// underscores, starting with a letter or digit, at most 32 characters.
var generatorPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_]{0,31}$`)

// ValidateGeneratorName validates a single selection tag.
//
// Example:
//
//	if err := validation.ValidateGeneratorName(tag); err != nil {
//	    return fmt.Errorf("invalid --gens: %w", err)
//	}
func ValidateGeneratorName(name string) error {
	if name == "" {
		return fmt.Errorf("generator name cannot be empty")
	}
	if !generatorPattern.MatchString(name) {
		return fmt.Errorf("invalid generator name: %q (must be 1-32 lowercase alphanumeric chars or underscores)", name)
	}
	return nil
}

// ValidateGeneratorNames validates every name and lists all failures.
func ValidateGeneratorNames(names []string) error {
	var invalid []string
	for _, n := range names {
		if err := ValidateGeneratorName(n); err != nil {
			invalid = append(invalid, n)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid generator names: %q", invalid)
	}
	return nil
}

// ParseGeneratorList splits a comma-separated list, trimming and
// lowercasing entries and dropping empty ones.
//
// Example:
//
//	ParseGeneratorList("pcg32, STD_MT19937,,csimd")
//	// []string{"pcg32", "std_mt19937", "csimd"}
func ParseGeneratorList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ValidateRunID checks that id is a canonical UUID string.
func ValidateRunID(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", id, err)
	}
	if parsed.String() != strings.ToLower(id) {
		return fmt.Errorf("invalid run id %q: not in canonical form", id)
	}
	return nil
}
