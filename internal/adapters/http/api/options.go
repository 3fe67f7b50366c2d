package api

const defaultMaxAssetDimension = 1024

type serverConfig struct {
	allowControl      bool
	maxAssetDimension int
}

// Option configures the API server.
type Option func(*serverConfig)

// WithControl enables the POST endpoints that drive manual triggers.
func WithControl(enabled bool) Option {
	return func(c *serverConfig) {
		c.allowControl = enabled
	}
}

// WithMaxAssetDimension caps the w and h query parameters of /assets.
func WithMaxAssetDimension(px int) Option {
	return func(c *serverConfig) {
		if px > 0 {
			c.maxAssetDimension = px
		}
	}
}
