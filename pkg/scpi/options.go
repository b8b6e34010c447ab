package scpi

import "time"

type Options struct {
	Timeout     time.Duration
	DialTimeout time.Duration
}

type Option func(*Options) error

// Timeout sets the per-operation deadline covering the full request/response
// exchange. The default is 2 seconds.
func Timeout(timeout time.Duration) Option {
	return func(o *Options) error {
		o.Timeout = timeout
		return nil
	}
}

// DialTimeout sets the timeout for establishing the TCP connection. The
// default is the operation timeout.
func DialTimeout(timeout time.Duration) Option {
	return func(o *Options) error {
		o.DialTimeout = timeout
		return nil
	}
}

func NewOptions(opts ...Option) (*Options, error) {
	o := &Options{
		Timeout: 2 * time.Second,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.DialTimeout == 0 {
		o.DialTimeout = o.Timeout
	}
	return o, nil
}
