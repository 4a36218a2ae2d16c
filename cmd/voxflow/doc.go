// Copyright (c) VoxFlow Authors.
// Licensed under the MIT License.

// Command voxflow runs the voice command orchestration server.
//
//	voxflow serve                        start the server
//	voxflow serve --config voxflow.yaml  start with a config file
//	voxflow version                      print version information
//	voxflow health                       probe a running server
package main
