// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package biosimd provides table-driven kernels for the common operations on
// ASCII base sequences: cleaning, validation, 2-bit packing and reverse
// complement. The functions work on byte slices and never allocate.
package biosimd
