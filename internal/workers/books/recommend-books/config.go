// internal/workers/books/recommend-books/config.go
package recommendbooks

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Minute,
	}
}
