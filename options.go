package syncpump

import "time"

const (
	defaultBatchLimit        = 25
	defaultBatchRuns         = 5
	defaultWeightCeiling     = 12000
	defaultTimeoutRetries    = 1
	defaultTimeoutRetryDelay = 10 * time.Second
	defaultCooldownPeriod    = 5 * time.Minute
	defaultSendTimeout       = 30 * time.Second
	defaultDependency        = "bulk-api"
)

// Config defines how a Pump selects, batches and retries. The host
// scheduler sources it once and passes it in at construction; the engine
// reads no ambient configuration.
type Config struct {
	// BatchLimit caps rows selected and queued per iteration.
	BatchLimit int
	// BatchRuns caps iterations per scheduler invocation.
	BatchRuns int
	// WeightCeiling bounds the total payload weight of a multi-row chunk.
	WeightCeiling int
	// TimeoutRetries bounds immediate in-process retries after a network timeout.
	TimeoutRetries int
	// TimeoutRetryDelay is the fixed sleep before a timeout retry.
	TimeoutRetryDelay time.Duration
	// CooldownPeriod is how long the cooldown marker gates runs after an outage.
	CooldownPeriod time.Duration
	// Dependency names the remote dependency for cooldown-marker keying.
	Dependency string
	Clock      Clock
	Logger     Logger
	Metrics    Metrics
}

func (c Config) withDefaults() Config {
	if c.BatchLimit <= 0 {
		c.BatchLimit = defaultBatchLimit
	}
	if c.BatchRuns <= 0 {
		c.BatchRuns = defaultBatchRuns
	}
	if c.WeightCeiling <= 0 {
		c.WeightCeiling = defaultWeightCeiling
	}
	if c.TimeoutRetries == 0 {
		c.TimeoutRetries = defaultTimeoutRetries
	}
	if c.TimeoutRetries < 0 {
		c.TimeoutRetries = 0
	}
	if c.TimeoutRetryDelay <= 0 {
		c.TimeoutRetryDelay = defaultTimeoutRetryDelay
	}
	if c.CooldownPeriod <= 0 {
		c.CooldownPeriod = defaultCooldownPeriod
	}
	if c.Dependency == "" {
		c.Dependency = defaultDependency
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	if c.Logger == nil {
		c.Logger = NopLogger{}
	}
	if c.Metrics == nil {
		c.Metrics = NopMetrics{}
	}

	return c
}

// Option configures Pump behavior.
type Option func(*Config)

// WithBatchLimit sets the per-iteration row page size.
func WithBatchLimit(limit int) Option {
	return func(c *Config) {
		c.BatchLimit = limit
	}
}

// WithBatchRuns sets the number of iterations per invocation.
func WithBatchRuns(runs int) Option {
	return func(c *Config) {
		c.BatchRuns = runs
	}
}

// WithWeightCeiling sets the chunk weight ceiling.
func WithWeightCeiling(ceiling int) Option {
	return func(c *Config) {
		c.WeightCeiling = ceiling
	}
}

// WithTimeoutRetries sets the immediate retry bound for network timeouts.
// A negative value disables immediate retries.
func WithTimeoutRetries(retries int) Option {
	return func(c *Config) {
		c.TimeoutRetries = retries
	}
}

// WithTimeoutRetryDelay sets the fixed sleep before a timeout retry.
func WithTimeoutRetryDelay(delay time.Duration) Option {
	return func(c *Config) {
		c.TimeoutRetryDelay = delay
	}
}

// WithCooldownPeriod sets how long runs are gated after a server outage.
func WithCooldownPeriod(period time.Duration) Option {
	return func(c *Config) {
		c.CooldownPeriod = period
	}
}

// WithDependency sets the cooldown-marker key for the remote dependency.
func WithDependency(name string) Option {
	return func(c *Config) {
		c.Dependency = name
	}
}

// WithClock sets the engine clock.
func WithClock(clock Clock) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithMetrics sets the engine metrics recorder.
func WithMetrics(metrics Metrics) Option {
	return func(c *Config) {
		c.Metrics = metrics
	}
}
