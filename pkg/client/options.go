package client

// Options Options
type Options struct {
	// ReadBufferSize is the socket read chunk size.
	ReadBufferSize int
	// SendQueueLen bounds commands waiting for the connection loop.
	// Submission blocks while the queue is full.
	SendQueueLen int
	// ResponseQueueLen bounds undelivered responses per command. The
	// connection loop blocks delivering to a full stream, so a slow
	// consumer stalls the whole session.
	ResponseQueueLen int
}

// NewOptions NewOptions
func NewOptions() *Options {
	return &Options{
		ReadBufferSize:   4096,
		SendQueueLen:     16,
		ResponseQueueLen: 16,
	}
}

// Option Option
type Option func(opts *Options)

// WithReadBufferSize WithReadBufferSize
func WithReadBufferSize(size int) Option {
	return func(opts *Options) {
		opts.ReadBufferSize = size
	}
}

// WithSendQueueLen WithSendQueueLen
func WithSendQueueLen(l int) Option {
	return func(opts *Options) {
		opts.SendQueueLen = l
	}
}

// WithResponseQueueLen WithResponseQueueLen
func WithResponseQueueLen(l int) Option {
	return func(opts *Options) {
		opts.ResponseQueueLen = l
	}
}
