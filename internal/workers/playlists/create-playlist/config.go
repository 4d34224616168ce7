// internal/workers/playlists/create-playlist/config.go
package createplaylist

import "time"

type Config struct {
	Timeout time.Duration
}

// LoadConfig allows for a full recommendation run when the job carries no
// precomputed recommendations.
func LoadConfig() *Config {
	return &Config{
		Timeout: 120 * time.Second,
	}
}
