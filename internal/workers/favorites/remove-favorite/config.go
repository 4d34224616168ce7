// internal/workers/favorites/remove-favorite/config.go
package removefavorite

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
