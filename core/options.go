package core

import "go.uber.org/zap"

type options struct {
	Log *zap.SugaredLogger
}

func newOptions() *options {
	return &options{Log: zap.NewNop().Sugar()}
}

// Option configures a Core.
type Option func(*options)

// WithLog sets the logger used for every subsystem the Core owns.
func WithLog(log *zap.SugaredLogger) Option {
	return func(o *options) { o.Log = log }
}
