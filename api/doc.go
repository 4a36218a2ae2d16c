// Copyright (c) VoxFlow Authors.
// Licensed under the MIT License.

// Package api exposes the command engine over HTTP.
//
// Endpoints:
//
//	POST /v1/command       process one command, JSON in and out
//	GET  /v1/stream        WebSocket; transcript fragments in, updates out
//	GET  /v1/capabilities  list registered capabilities
//	GET  /v1/metrics       engine metrics snapshot as JSON
//	GET  /metrics          Prometheus exposition
//	GET  /health           liveness probe
//
// Responses use a uniform envelope with success, data and error fields.
// Error payloads carry the engine's structured codes; collaborator
// details stay server-side.
package api
