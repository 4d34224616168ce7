// internal/workers/books/search-books/config.go
package searchbooks

import "time"

type Config struct {
	Timeout time.Duration
	// MaxResults caps what a single job may ask for.
	MaxResults int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    60 * time.Second,
		MaxResults: 40,
	}
}
