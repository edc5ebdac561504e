package config

// EmbeddedTMDBKey is injected at build time via ldflags and used when no key
// is configured through the config file or environment.
//
// Build with:
//
//	go build -ldflags "-X 'github.com/reelshelf/reelshelf/internal/config.EmbeddedTMDBKey=xxx'"
var EmbeddedTMDBKey string
