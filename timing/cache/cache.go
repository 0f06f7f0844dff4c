// Package cache models the tag state of the private data caches that the
// reference fabric keeps per core. Blocks carry no data; the functional
// backend owns the values.
package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int
	// Associativity (number of ways)
	Associativity int
	// BlockSize in bytes, the coherence unit
	BlockSize int
	// HitLatency in cycles
	HitLatency uint64
	// MissLatency in cycles, including the fill from the shared level
	MissLatency uint64
	// UpgradeLatency in cycles to gain write permission on a present block
	UpgradeLatency uint64
}

// DefaultL1DConfig returns the default private data cache: 64KB, 4-way
// with 64B lines.
func DefaultL1DConfig() Config {
	return Config{
		Size:           64 * 1024,
		Associativity:  4,
		BlockSize:      64,
		HitLatency:     2,
		MissLatency:    30,
		UpgradeLatency: 10,
	}
}

// Validate reports whether the geometry describes at least one set.
func (c Config) Validate() bool {
	if c.Associativity <= 0 || c.BlockSize <= 0 {
		return false
	}

	if c.BlockSize&(c.BlockSize-1) != 0 {
		return false
	}

	return c.Size >= c.Associativity*c.BlockSize
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates the access needed no coherence action.
	Hit bool
	// Upgrade indicates a write to a block held without write permission.
	Upgrade bool
	// Latency is the number of cycles this access takes.
	Latency uint64
	// Evicted is true if a valid block was replaced.
	Evicted bool
	// EvictedAddr is the block address of the replaced block.
	EvictedAddr uint64
	// EvictedDirty tells whether the replaced block was writable.
	EvictedDirty bool
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads         uint64
	Writes        uint64
	Hits          uint64
	Misses        uint64
	Upgrades      uint64
	Evictions     uint64
	Writebacks    uint64
	Invalidations uint64
	Downgrades    uint64
}

// Cache tracks which blocks a core holds and whether it may write them.
// The dirty bit of a block stands for write permission.
type Cache struct {
	config    Config
	directory *akitacache.DirectoryImpl
	stats     Statistics
}

// New creates a new cache with the given configuration.
func New(config Config) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

// BlockAddr returns the address of the block holding addr.
func (c *Cache) BlockAddr(addr uint64) uint64 {
	return addr &^ uint64(c.config.BlockSize-1)
}

func (c *Cache) lookup(addr uint64) *akitacache.Block {
	block := c.directory.Lookup(0, c.BlockAddr(addr))
	if block == nil || !block.IsValid {
		return nil
	}

	return block
}

// Contains reports whether the block holding addr is present.
func (c *Cache) Contains(addr uint64) bool {
	return c.lookup(addr) != nil
}

// Writable reports whether the block holding addr is present with write
// permission.
func (c *Cache) Writable(addr uint64) bool {
	block := c.lookup(addr)
	return block != nil && block.IsDirty
}

// Read performs a read access, allocating the block on a miss.
func (c *Cache) Read(addr uint64) AccessResult {
	c.stats.Reads++

	if block := c.lookup(addr); block != nil {
		c.stats.Hits++
		c.directory.Visit(block)

		return AccessResult{Hit: true, Latency: c.config.HitLatency}
	}

	c.stats.Misses++

	return c.fill(addr, false)
}

// Write performs a write access. The block ends up present and writable.
func (c *Cache) Write(addr uint64) AccessResult {
	c.stats.Writes++

	if block := c.lookup(addr); block != nil {
		c.directory.Visit(block)

		if block.IsDirty {
			c.stats.Hits++
			return AccessResult{Hit: true, Latency: c.config.HitLatency}
		}

		c.stats.Upgrades++
		block.IsDirty = true

		return AccessResult{Upgrade: true, Latency: c.config.UpgradeLatency}
	}

	c.stats.Misses++

	return c.fill(addr, true)
}

func (c *Cache) fill(addr uint64, writable bool) AccessResult {
	result := AccessResult{Latency: c.config.MissLatency}
	blockAddr := c.BlockAddr(addr)

	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return result
	}

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = victim.Tag
		result.EvictedDirty = victim.IsDirty

		if victim.IsDirty {
			c.stats.Writebacks++
		}
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = writable
	c.directory.Visit(victim)

	return result
}

// Invalidate removes the block holding addr. It reports whether the block
// was present.
func (c *Cache) Invalidate(addr uint64) bool {
	block := c.lookup(addr)
	if block == nil {
		return false
	}

	if block.IsDirty {
		c.stats.Writebacks++
	}

	block.IsValid = false
	block.IsDirty = false
	c.stats.Invalidations++

	return true
}

// Downgrade takes write permission away from the block holding addr. It
// reports whether the block was writable.
func (c *Cache) Downgrade(addr uint64) bool {
	block := c.lookup(addr)
	if block == nil || !block.IsDirty {
		return false
	}

	block.IsDirty = false
	c.stats.Writebacks++
	c.stats.Downgrades++

	return true
}

// Flush invalidates every block, counting a writeback for each writable one.
func (c *Cache) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				c.stats.Writebacks++
			}

			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset invalidates all blocks and clears the statistics.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}
