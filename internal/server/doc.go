// Copyright (c) VoxFlow Authors.
// Licensed under the MIT License.

// Package server manages the lifecycle of an HTTP server: non-blocking
// start, asynchronous error reporting, and graceful shutdown on signal.
package server
