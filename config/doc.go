// Copyright (c) VoxFlow Authors.
// Licensed under the MIT License.

// Package config loads VoxFlow configuration.
//
// Settings resolve in three layers, each overriding the last:
// built-in defaults, an optional YAML file, and environment variables
// prefixed with VOXFLOW. Nested keys join with underscores, so
// engine.dispatch.max_concurrency becomes
// VOXFLOW_ENGINE_DISPATCH_MAX_CONCURRENCY.
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("voxflow.yaml").
//	    Load()
package config
