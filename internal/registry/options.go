package registry

// GiveupOff disables the give-up heuristic.
const GiveupOff = -1

// Options mirrors the full set of configuration knobs the driver
// recognizes, whether set from the command line or a defaults file.
type Options struct {
	Workers             int
	PreprocessCmd       string
	Fuzz                bool
	SanityCheckEachPass bool
	Sanitize            bool
	SkipInitial         bool
	Slow                bool
	VerySlow            bool
	NoDefaults          bool
	PrintDiff           bool
	SaveTemps           bool
	Cache               bool
	CacheSize           int
	Verbose             bool
	GiveupAfter         int
}

// DefaultOptions returns the driver's baseline configuration.
func DefaultOptions() Options {
	return Options{
		Workers:     4,
		GiveupAfter: 50000,
		CacheSize:   10000,
	}
}
