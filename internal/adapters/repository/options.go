package repository

// Option applies a configuration option to a FileSource.
type Option func(*FileSource)

// WithMaxBytes caps the size of a dataset file.
func WithMaxBytes(n int64) Option {
	return func(s *FileSource) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithStrictKeys rejects unknown fields and metric or probability keys that
// no weight vector can use.
func WithStrictKeys() Option {
	return func(s *FileSource) {
		s.strict = true
	}
}
