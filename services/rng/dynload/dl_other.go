// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

//go:build !darwin && !linux

package dynload

import (
	"errors"
	"runtime"
)

var errUnsupported = errors.New("dynamic loading is not supported on " + runtime.GOOS)

type platformOpener struct{}

func (platformOpener) Open(string) (uintptr, error) { return 0, errUnsupported }

func (platformOpener) Sym(uintptr, string) (uintptr, error) { return 0, errUnsupported }

func (platformOpener) Bind(any, uintptr) {}

func (platformOpener) Close(uintptr) error { return nil }
