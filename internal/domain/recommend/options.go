package recommend

// DefaultLimit caps the ranked recommendation list.
const DefaultLimit = 10

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLimit sets how many recommendations Recommend returns.
func WithLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.limit = n
		}
	}
}

// WithRules replaces the default rule set.
func WithRules(rules ...Rule) Option {
	return func(e *Engine) {
		if len(rules) > 0 {
			e.rules = rules
		}
	}
}

// WithExtraRules appends rules after the defaults.
func WithExtraRules(rules ...Rule) Option {
	return func(e *Engine) {
		e.rules = append(e.rules, rules...)
	}
}
