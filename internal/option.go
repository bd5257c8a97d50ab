package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	stdio  bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithStdio switches the application to MCP stdio mode instead of the
// HTTP server.
func WithStdio() Option {
	return func(a *application) {
		a.stdio = true
	}
}
