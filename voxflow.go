// Copyright (c) VoxFlow Authors.
// Licensed under the MIT License.

// Package voxflow provides a top-level convenience entry point for
// building a command engine with minimal boilerplate.
//
//	import "github.com/voxflow/voxflow"
//
//	engine, err := voxflow.New()                       // built-in fake EMR
//	engine, err := voxflow.New(voxflow.WithEMR(client)) // real collaborator
//
// This is a thin wrapper over the capability, emr and orchestrator
// packages; applications that need registries, metrics or session
// stores of their own should wire those packages directly.
package voxflow

import (
	"go.uber.org/zap"

	"github.com/voxflow/voxflow/capability"
	"github.com/voxflow/voxflow/emr"
	"github.com/voxflow/voxflow/orchestrator"
)

// Option configures the engine created by [New].
type Option func(*builder)

type builder struct {
	client     emr.Client
	config     orchestrator.Config
	logger     *zap.Logger
	engineOpts []orchestrator.EngineOption
}

// WithEMR sets the EMR collaborator. The default is the in-memory fake.
func WithEMR(client emr.Client) Option {
	return func(b *builder) { b.client = client }
}

// WithConfig overrides the engine configuration.
func WithConfig(config orchestrator.Config) Option {
	return func(b *builder) { b.config = config }
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *builder) { b.logger = logger }
}

// WithEngineOptions forwards options such as
// [orchestrator.WithMetrics] and [orchestrator.WithSessionStore].
func WithEngineOptions(opts ...orchestrator.EngineOption) Option {
	return func(b *builder) { b.engineOpts = append(b.engineOpts, opts...) }
}

// New creates a ready-to-use engine with every standard capability
// registered against the configured EMR client.
func New(opts ...Option) (*orchestrator.Engine, error) {
	b := &builder{
		config: orchestrator.DefaultConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.client == nil {
		b.client = emr.NewFake()
	}

	registry := capability.NewRegistry(b.logger)
	if err := emr.RegisterAll(registry, b.client, b.logger); err != nil {
		return nil, err
	}
	return orchestrator.NewEngine(registry, b.config, b.logger, b.engineOpts...), nil
}
