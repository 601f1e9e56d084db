package session

// Option configures session construction.
type Option func(*options)

type options struct {
	issues IssueRecorder
}

// WithIssueRecorder routes recoverable field-level conditions to rec.
// By default they are discarded.
func WithIssueRecorder(rec IssueRecorder) Option {
	return func(o *options) {
		if rec != nil {
			o.issues = rec
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{issues: discardIssues{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
