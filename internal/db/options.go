package db

import (
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

const (
	// DefaultBlockCacheSize is 256 MB.
	DefaultBlockCacheSize = 256 << 20

	// DefaultIndexCacheSize is 128 MB.
	DefaultIndexCacheSize = 128 << 20

	// DefaultMaxTableSize is 64 MB. A snapshot is written in one
	// batch, so the table size bounds nothing but memtable memory.
	DefaultMaxTableSize = 64 << 20

	// DefaultLogValueSize is 64 MB.
	DefaultLogValueSize = 64 << 20

	// DefaultCompressionMode is the default block
	// compression setting.
	DefaultCompressionMode = options.Snappy

	// Default GC settings for reclaiming
	// space in value logs.
	defaultGCInterval     = 30 * time.Minute
	defaultGCDiscardRatio = 0.1
)

func DefaultBadgerOptions(dir string) badger.Options {
	opts := badger.DefaultOptions(dir)

	opts.Compression = DefaultCompressionMode

	opts.MemTableSize = DefaultMaxTableSize
	opts.ValueLogFileSize = DefaultLogValueSize

	// Snapshots are rewritten whole, so one memtable is enough.
	opts.NumMemtables = 1
	opts.NumLevelZeroTables = 1
	opts.NumLevelZeroTablesStall = 2

	// We don't compact L0 on close as this can greatly delay shutdown time.
	opts.CompactL0OnClose = false

	opts.IndexCacheSize = DefaultIndexCacheSize
	opts.BlockCacheSize = DefaultBlockCacheSize

	return opts
}
