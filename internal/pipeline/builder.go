// Package pipeline implements pipeline construction.
package pipeline

import (
	"time"

	"firestige.xyz/otusdpi/internal/engine"
	"firestige.xyz/otusdpi/internal/source"
)

// Builder provides a fluent interface for building pipelines.
// This is an alternative to using Config directly.
type Builder struct {
	config Config
}

// NewBuilder creates a new pipeline builder.
func NewBuilder() *Builder {
	return &Builder{
		config: Config{
			ExpireInterval: DefaultExpireInterval,
		},
	}
}

// WithSource sets the frame source.
func (b *Builder) WithSource(s source.Source) *Builder {
	b.config.Source = s
	return b
}

// WithEngine sets the classification engine.
func (b *Builder) WithEngine(e *engine.Engine) *Builder {
	b.config.Engine = e
	return b
}

// WithExpireInterval sets how often idle flows are swept. 0 disables sweeping.
func (b *Builder) WithExpireInterval(d time.Duration) *Builder {
	b.config.ExpireInterval = d
	return b
}

// WithWallClock sweeps on a wall-clock ticker instead of packet time.
func (b *Builder) WithWallClock(on bool) *Builder {
	b.config.WallClock = on
	return b
}

// Build creates the pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	return New(b.config)
}
