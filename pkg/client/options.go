package client

import (
	"crypto/tls"
	"net/http"
	"time"
)

type Options struct {
	ignoreTLSCert bool
	Timeout       time.Duration
	Username      string
	Password      string

	HttpClient *http.Client
}

type Option func(*Options) error

// IgnoreTLSCert disables TLS certificate verification. Lab instruments
// usually serve self-signed certificates.
func IgnoreTLSCert() Option {
	return func(o *Options) error {
		o.ignoreTLSCert = true
		return nil
	}
}

// Timeout sets the per-request timeout. The default is 5 seconds.
func Timeout(timeout time.Duration) Option {
	return func(o *Options) error {
		o.Timeout = timeout
		return nil
	}
}

// BasicAuth sets credentials sent with every request.
func BasicAuth(username, password string) Option {
	return func(o *Options) error {
		o.Username = username
		o.Password = password
		return nil
	}
}

func NewOptions(opts ...Option) (*Options, error) {
	o := &Options{
		Timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if o.ignoreTLSCert {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	o.HttpClient = &http.Client{
		Timeout:   o.Timeout,
		Transport: transport,
	}

	return o, nil
}
