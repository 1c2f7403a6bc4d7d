package mysql

import "github.com/shopsync/syncpump"

const (
	defaultOutboxTable   = "sync_outbox"
	defaultStatusTable   = "sync_status"
	defaultArchiveTable  = "sync_status_archive"
	defaultCooldownTable = "sync_cooldown"
)

// Config defines MySQL store behavior.
type Config struct {
	OutboxTable   string
	StatusTable   string
	ArchiveTable  string
	CooldownTable string
	Clock         syncpump.Clock
}

func (c Config) withDefaults() Config {
	if c.OutboxTable == "" {
		c.OutboxTable = defaultOutboxTable
	}
	if c.StatusTable == "" {
		c.StatusTable = defaultStatusTable
	}
	if c.ArchiveTable == "" {
		c.ArchiveTable = defaultArchiveTable
	}
	if c.CooldownTable == "" {
		c.CooldownTable = defaultCooldownTable
	}
	if c.Clock == nil {
		c.Clock = syncpump.SystemClock{}
	}

	return c
}

// Option configures the MySQL store.
type Option func(*Config)

// WithOutboxTable sets the outbox table name.
func WithOutboxTable(name string) Option {
	return func(c *Config) {
		c.OutboxTable = name
	}
}

// WithStatusTable sets the sync status table name.
func WithStatusTable(name string) Option {
	return func(c *Config) {
		c.StatusTable = name
	}
}

// WithArchiveTable sets the last-status archive table name.
func WithArchiveTable(name string) Option {
	return func(c *Config) {
		c.ArchiveTable = name
	}
}

// WithCooldownTable sets the cooldown marker table name.
func WithCooldownTable(name string) Option {
	return func(c *Config) {
		c.CooldownTable = name
	}
}

// WithClock sets the time source used by the store.
func WithClock(clock syncpump.Clock) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}
