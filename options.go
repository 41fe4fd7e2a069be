package rendergraph

// Option configures a Graph during creation.
//
// Example:
//
//	g := rendergraph.New(rendergraph.WithLabel("frame"), rendergraph.WithMerge(false))
type Option func(*options)

type options struct {
	label   string
	reorder bool
	merge   bool
}

func defaultOptions() options {
	return options{label: "rendergraph", reorder: true, merge: true}
}

// WithLabel sets the debug label used for command encoders and logs.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}

// WithReorder enables or disables the latency-hiding reorder. When disabled
// passes run in dependency order with program order breaking ties.
// Enabled by default.
func WithReorder(enabled bool) Option {
	return func(o *options) {
		o.reorder = enabled
	}
}

// WithMerge enables or disables folding adjacent graphic passes into one
// native render pass. Enabled by default.
func WithMerge(enabled bool) Option {
	return func(o *options) {
		o.merge = enabled
	}
}
