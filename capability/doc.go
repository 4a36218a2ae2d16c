// Copyright (c) VoxFlow Authors.
// Licensed under the MIT License.

// Package capability provides the process-wide registry mapping capability
// names to invocable handlers and their parameter schemas.
//
// The registry is read-mostly shared state: dispatch takes read-locked
// lookups while registration, including hot reload of new capabilities,
// takes the write lock. Per-capability invocation timeouts and rate limits
// are attached at registration time and honored by the dispatcher.
package capability
