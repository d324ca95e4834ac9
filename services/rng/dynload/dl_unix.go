// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

//go:build darwin || linux

package dynload

import "github.com/ebitengine/purego"

type platformOpener struct{}

func (platformOpener) Open(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
}

func (platformOpener) Sym(handle uintptr, name string) (uintptr, error) {
	return purego.Dlsym(handle, name)
}

func (platformOpener) Bind(fptr any, addr uintptr) {
	purego.RegisterFunc(fptr, addr)
}

func (platformOpener) Close(handle uintptr) error {
	return purego.Dlclose(handle)
}
