// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dynload

// opener abstracts the platform dynamic linker.
type opener interface {
	// Open loads the library at path.
	Open(path string) (uintptr, error)

	// Sym returns the address of name in handle.
	Sym(handle uintptr, name string) (uintptr, error)

	// Bind points the function pointer fptr at addr.
	Bind(fptr any, addr uintptr)

	// Close unloads handle.
	Close(handle uintptr) error
}
