package dedupe

// Option applies a configuration option to the deduper.
type Option func(*inMemoryDeduper)

// WithNormalizer replaces the function that maps a source name to its
// comparison key. Names with equal keys count as duplicates.
func WithNormalizer(fn func(string) string) Option {
	return func(d *inMemoryDeduper) {
		if fn != nil {
			d.normalize = fn
		}
	}
}
