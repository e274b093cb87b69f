package scoped

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type scopeOptions struct {
	services ServiceMap
	parent   *Scope
	logger   *zap.Logger
	metrics  *Metrics
}

// Option configures a scope created by MakeScope or NewScope.
type Option func(*scopeOptions) error

// WithServices seeds the scope with a copy of services and initializes it on creation.
func WithServices(services ServiceMap) Option {
	return func(o *scopeOptions) error {
		if services == nil {
			services = ServiceMap{}
		}
		o.services = services
		return nil
	}
}

// WithParent chains the scope to parent for singleton ownership lookups.
func WithParent(parent *Scope) Option {
	return func(o *scopeOptions) error {
		o.parent = parent
		return nil
	}
}

// WithLogger sets the logger. Sub-scopes inherit it.
func WithLogger(logger *zap.Logger) Option {
	return func(o *scopeOptions) error {
		o.logger = logger
		return nil
	}
}

// WithMetrics records resolutions, constructions and steps. Sub-scopes inherit it.
func WithMetrics(metrics *Metrics) Option {
	return func(o *scopeOptions) error {
		o.metrics = metrics
		return nil
	}
}

// WithConfig builds the logger and, when enabled, the metrics described by cfg.
// Metrics are registered with reg, or the default registerer when reg is nil.
func WithConfig(cfg Config, reg prometheus.Registerer) Option {
	return func(o *scopeOptions) error {
		logger, err := NewLogger(cfg.Logging)
		if err != nil {
			return err
		}
		o.logger = logger

		if !cfg.Metrics.Enabled {
			return nil
		}
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		metrics, err := NewMetrics(cfg.Metrics.Namespace, reg)
		if err != nil {
			return err
		}
		o.metrics = metrics
		return nil
	}
}
