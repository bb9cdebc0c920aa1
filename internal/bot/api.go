package bot

import (
	"duelsol/internal/domain"
)

// Brain is the interface that all bot strategies must implement. A nil move
// with a nil error means the strategy found nothing worth playing this tick.
type Brain interface {
	CalculateMove(st *domain.GameState, side domain.SideID) (*domain.Move, error)
	OnEvent(event interface{})
}
