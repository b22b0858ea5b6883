package ramcache

import (
	logger "github.com/harwoeck/liblog/contract"
)

const (
	// minCapacity is the enforced capacity floor.
	minCapacity = 8

	// maxInitCap caps the upfront map allocation hint derived from capacity.
	maxInitCap = 100 << 20

	defaultCapacity = 1 << 20
	defaultStripes  = 128
	defaultShards   = 16
)

type Config struct {
	capacity int
	stripes  int
	shards   int
	log      logger.Logger
}

func NewConfig() *Config {
	return &Config{
		capacity: defaultCapacity,
		stripes:  defaultStripes,
		shards:   defaultShards,
	}
}

// Capacity sets the maximum number of entries (not bytes). Values below the
// floor of 8 are raised to it.
func (c *Config) Capacity(count int) *Config {
	if count < minCapacity {
		count = minCapacity
	}
	c.capacity = count
	return c
}

// Stripes sets the number of per-key lock stripes.
// If the count is not a power of 2, the configuration remains unchanged.
func (c *Config) Stripes(count int) *Config {
	if count <= 0 || count&(count-1) != 0 {
		return c
	}
	c.stripes = count
	return c
}

// Shards sets the number of map shards.
// If the count is not a power of 2, the configuration remains unchanged.
func (c *Config) Shards(count int) *Config {
	if count <= 0 || count&(count-1) != 0 {
		return c
	}
	c.shards = count
	return c
}

// Logger sets the logger used for debug output. A nil logger selects the
// default stdout logger.
func (c *Config) Logger(log logger.Logger) *Config {
	c.log = log
	return c
}

// initHint returns the initial map sizing hint for the configured capacity.
func (c *Config) initHint() int {
	hint := c.capacity >> 3
	if hint > maxInitCap {
		hint = maxInitCap
	}
	return hint
}
