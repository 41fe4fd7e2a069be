package pool

// Option configures a pool.
type Option func(*options)

type options struct {
	capacity  int
	buckets   int
	fenceWait bool
}

func defaultOptions() options {
	return options{capacity: 16, buckets: 64}
}

// WithCapacity sets how many idle resources are kept per bucket (HashPool)
// or per resource kind (LazyPool). Surplus returns are destroyed.
// Values below 1 are ignored. The default is 16.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithBuckets sets how many distinct creation infos a HashPool tracks per
// resource kind before the least recently used bucket is evicted.
// Values below 1 are ignored. The default is 64.
func WithBuckets(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.buckets = n
		}
	}
}

// WithFenceWait makes a pool whose bucket is full of in-flight resources wait
// for the oldest one to complete instead of creating another.
func WithFenceWait(wait bool) Option {
	return func(o *options) {
		o.fenceWait = wait
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
