package modem

import (
	"log/slog"
)

const (
	// DefaultBufferSize matches the transmit and receive buffers configured
	// on the sensor board's UART.
	DefaultBufferSize = 128
	// DefaultLineQueue is how many received lines are held for ReadLine
	// before new ones are dropped.
	DefaultLineQueue = 16
)

func (c *Config) validate() error {
	if c.dialer == nil {
		return ErrNoDialer
	}
	if c.sizesSet && (c.txBufferSize <= 0 || c.rxBufferSize <= 0) {
		return ErrInvalidBufferSize
	}
	if c.lineQueue < 0 {
		return ErrInvalidBufferSize
	}
	return nil
}

// Config holds the settings of a Link. Build one with NewConfigBuilder.
type Config struct {
	dialer       Dialer
	txBufferSize int
	rxBufferSize int
	lineQueue    int
	sizesSet     bool
	logger       *slog.Logger
}

func (c *Config) setDefaults() {
	if c.txBufferSize == 0 {
		c.txBufferSize = DefaultBufferSize
	}
	if c.rxBufferSize == 0 {
		c.rxBufferSize = DefaultBufferSize
	}
	if c.lineQueue == 0 {
		c.lineQueue = DefaultLineQueue
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
}

// ConfigBuilder assembles a Config step by step.
type ConfigBuilder struct {
	config Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.dialer = d
	return b
}

// WithBufferSizes sets the transmit and receive buffer capacities in bytes.
func (b *ConfigBuilder) WithBufferSizes(tx, rx int) *ConfigBuilder {
	b.config.txBufferSize = tx
	b.config.rxBufferSize = rx
	b.config.sizesSet = true
	return b
}

func (b *ConfigBuilder) WithLineQueue(n int) *ConfigBuilder {
	b.config.lineQueue = n
	return b
}

func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.logger = l
	return b
}

// Build validates the collected settings and fills in defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	c := b.config
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	c.setDefaults()
	return c, nil
}
