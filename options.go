package pff

import "github.com/sirupsen/logrus"

// Options carries the caller-visible configuration enumerated in §6.
// There are no environment variables and nothing is persisted by this
// package; every knob here is passed explicitly by the caller.
type Options struct {
	// Logger receives warnings (force-decryption flips, recovered-entry
	// skips). Defaults to a quiet error-level logger.
	Logger logrus.FieldLogger

	// StrictValidation turns CRC, size, and back-pointer mismatches on
	// blocks into hard errors instead of Flags on the returned Block.
	StrictValidation bool

	// IgnoreForceDecryption disables the table-signature heuristic for a
	// specific read (§4.2, §4.4 step 4).
	IgnoreForceDecryption bool

	// IndexCacheSize bounds the number of index nodes (C6) kept by each
	// of the Context's two index trees (descriptor and offset). Zero
	// selects a sensible default.
	IndexCacheSize int

	// LocalDescriptorCacheSize bounds the number of local-descriptor nodes
	// (C7) kept by each local-descriptors tree the Context opens. Zero
	// selects a sensible default.
	LocalDescriptorCacheSize int
}

// RecoveryOptions controls the recovery engine (C11), per §4.11 step 4.
type RecoveryOptions struct {
	// IgnoreAllocationData scans the entire file for orphan index pages
	// instead of only the unallocated extents named by the allocation
	// tables. The 64-byte-aligned sweep runs only with ScanForFragments.
	IgnoreAllocationData bool

	// ScanForFragments additionally sweeps 64-byte-aligned regions for
	// stray data-block footers, not just candidate index pages.
	ScanForFragments bool
}

func (o *Options) logger() logrus.FieldLogger {
	if o == nil || o.Logger == nil {
		return defaultLogger()
	}
	return o.Logger
}

const (
	defaultIndexCacheSize           = 256
	defaultLocalDescriptorCacheSize = 128
)

func (o *Options) indexCacheSize() int {
	if o == nil || o.IndexCacheSize <= 0 {
		return defaultIndexCacheSize
	}
	return o.IndexCacheSize
}

func (o *Options) localDescriptorCacheSize() int {
	if o == nil || o.LocalDescriptorCacheSize <= 0 {
		return defaultLocalDescriptorCacheSize
	}
	return o.LocalDescriptorCacheSize
}

func (o *Options) strict() bool {
	return o != nil && o.StrictValidation
}

func (o *Options) ignoreForceDecryption() bool {
	return o != nil && o.IgnoreForceDecryption
}
