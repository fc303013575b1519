package rosmock

type Options struct {
	Addr            string
	HandlerPoolSize int

	// RequireLogin gates every command behind a successful /login.
	RequireLogin bool
	// Username and Password, when both set, are checked against the
	// login attributes. Empty means any credentials pass.
	Username string
	Password string
}

func NewOptions() *Options {
	return &Options{
		Addr:            "tcp://0.0.0.0:8728",
		HandlerPoolSize: 1024,
		RequireLogin:    true,
	}
}

type Option func(*Options)

func WithHandlerPoolSize(size int) Option {
	return func(o *Options) {
		o.HandlerPoolSize = size
	}
}

func WithRequireLogin(require bool) Option {
	return func(o *Options) {
		o.RequireLogin = require
	}
}

func WithCredentials(username, password string) Option {
	return func(o *Options) {
		o.Username = username
		o.Password = password
	}
}
