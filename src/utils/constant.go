package utils

// -----------------------------------------------------------------------------

const (
	// DefaultHistorySize is the number of ticks retained per symbol.
	DefaultHistorySize = 100

	// SeedStepMillis spaces the synthetic seed ticks one second apart.
	SeedStepMillis = 1000

	// SeedVolume is the volume stamped on synthetic seed ticks.
	SeedVolume = 100
)
