package bot

import (
	"fmt"
)

// BotLevel selects a strategy implementation.
type BotLevel int

const (
	BotLevelEasy BotLevel = iota
	BotLevelGreedy
)

// ParseLevel maps a config difficulty string onto a BotLevel.
func ParseLevel(s string) BotLevel {
	switch s {
	case "easy":
		return BotLevelEasy
	default:
		return BotLevelGreedy
	}
}

// NewBrain creates a new strategy for the specified level.
func NewBrain(level BotLevel) (Brain, error) {
	switch level {
	case BotLevelEasy:
		return &EasyBot{}, nil
	case BotLevelGreedy:
		return &GreedyBot{}, nil
	default:
		return nil, fmt.Errorf("unknown bot level: %d", level)
	}
}
