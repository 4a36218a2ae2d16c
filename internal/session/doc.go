// Copyright (c) VoxFlow Authors.
// Licensed under the MIT License.

// Package session stores per-session conversational context, most
// importantly the patient resolved by an earlier command so that "order a
// CBC" right after "find patient Smith" binds to the same patient. The
// store is Redis-backed when an address is configured and falls back to a
// TTL-bounded in-memory map otherwise.
//
// This package is internal and should not be imported by external
// projects.
package session
