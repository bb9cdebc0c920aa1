package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

type EngineConfig struct {
	// MatchTTLSeconds configures how long an idle match survives before the
	// sweep reclaims it.
	MatchTTLSeconds int `json:"match_ttl_seconds"`
	// RecentMoveCap bounds the per-match replay-detection cache.
	RecentMoveCap int `json:"recent_move_cap"`
	// BotMoveDelayMs configures how many milliseconds the bot waits between
	// moves so humans can follow its play.
	BotMoveDelayMs int    `json:"bot_move_delay_ms"`
	BotDifficulty  string `json:"bot_difficulty"`
	// DefaultShuffleMode selects "split" or "shared" decks for human duels.
	DefaultShuffleMode string `json:"default_shuffle_mode"`

	JoinTokenSecret     string `json:"join_token_secret"`
	JoinTokenIssuer     string `json:"join_token_issuer"`
	JoinTokenTTLSeconds int    `json:"join_token_ttl_seconds"`
}

var (
	cfg      *EngineConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadEngineConfig loads the engine configuration from the given path.
func LoadEngineConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read engine config: %w", err)
			return
		}

		var c EngineConfig
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal engine config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetEngineConfig returns the global engine configuration, which may be nil
// when no file was loaded. Use the typed getters for defaulted access.
func GetEngineConfig() *EngineConfig {
	return cfg
}

// MatchTTL returns the idle-match lifetime, defaulting to one hour.
func MatchTTL() time.Duration {
	if cfg == nil || cfg.MatchTTLSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(cfg.MatchTTLSeconds) * time.Second
}

// RecentMoveCap returns the replay-cache bound, defaulting to 500.
func RecentMoveCap() int {
	if cfg == nil || cfg.RecentMoveCap <= 0 {
		return 500
	}
	return cfg.RecentMoveCap
}

// BotMoveDelay returns the pause between bot moves, defaulting to 900ms.
func BotMoveDelay() time.Duration {
	if cfg == nil || cfg.BotMoveDelayMs <= 0 {
		return 900 * time.Millisecond
	}
	return time.Duration(cfg.BotMoveDelayMs) * time.Millisecond
}

// BotDifficulty returns the configured bot difficulty string; empty selects
// the default strategy.
func BotDifficulty() string {
	if cfg == nil {
		return ""
	}
	return cfg.BotDifficulty
}

// DefaultShuffleMode returns "split" unless configured otherwise.
func DefaultShuffleMode() string {
	if cfg == nil || cfg.DefaultShuffleMode == "" {
		return "split"
	}
	return cfg.DefaultShuffleMode
}

// JoinTokenSecret returns the HMAC secret for join tokens; empty disables
// token issuance.
func JoinTokenSecret() string {
	if cfg == nil {
		return ""
	}
	return cfg.JoinTokenSecret
}

// JoinTokenIssuer returns the token issuer, defaulting to "duelsol".
func JoinTokenIssuer() string {
	if cfg == nil || cfg.JoinTokenIssuer == "" {
		return "duelsol"
	}
	return cfg.JoinTokenIssuer
}

// JoinTokenTTL returns the token lifetime, defaulting to one hour.
func JoinTokenTTL() time.Duration {
	if cfg == nil || cfg.JoinTokenTTLSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(cfg.JoinTokenTTLSeconds) * time.Second
}
