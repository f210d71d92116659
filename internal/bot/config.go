package bot

import (
	"time"
)

// BotConfig represents the configuration for the Telegram front end
type BotConfig struct {
	// Timeout applied to every oracle-backed call
	RequestTimeout time.Duration
	// Long-poll timeout for the Telegram update feed, in seconds
	UpdateTimeout int
	// Maximum mistakes echoed back after a single turn
	MistakesPerReply int
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		RequestTimeout:   90 * time.Second,
		UpdateTimeout:    60,
		MistakesPerReply: 3,
	}
}
