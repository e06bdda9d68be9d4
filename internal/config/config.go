package config

import "time"

// Config holds all configuration for the atlas service
type Config struct {
	// Server configuration
	Host string
	Port int

	// Dataset configuration
	DatasetRoot string
	Workers     int

	// Reload configuration
	Reload     bool
	WebhookURL string

	// Shutdown configuration
	ShutdownGracePeriod time.Duration
}
