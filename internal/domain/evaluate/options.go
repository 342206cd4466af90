package evaluate

// Default parallelism configuration constants.
const (
	defaultParallelMinGroups = 64
)

// Option applies a configuration option to the GroupEvaluator.
type Option func(*GroupEvaluator)

// WithParallelism sets the number of workers for group computation.
// One (the default) keeps evaluation fully sequential.
func WithParallelism(n int) Option {
	return func(e *GroupEvaluator) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithParallelMinGroups sets the group count below which evaluation stays
// sequential even when parallelism is configured. Spinning up workers for a
// handful of groups costs more than it saves.
func WithParallelMinGroups(n int) Option {
	return func(e *GroupEvaluator) {
		if n > 0 {
			e.parallelMinGroups = n
		}
	}
}
