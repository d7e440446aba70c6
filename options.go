package annotator

import "go.uber.org/zap"

// Option configures a Canvas, StagingBuffer or Session.
type Option func(*options)

type options struct {
	log     *zap.Logger
	metrics *Metrics
	sink    EventSink
}

func buildOptions(opts []Option) options {
	o := options{log: zap.NewNop()}
	for _, fn := range opts {
		fn(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	return o
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records activity into m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithEventSink forwards canvas events to sink, for example an ECS world.
func WithEventSink(sink EventSink) Option {
	return func(o *options) { o.sink = sink }
}
