package bot

import (
	"github.com/google/uuid"

	"duelsol/internal/domain"
)

// Agent represents an autonomous bot player occupying a match seat.
type Agent struct {
	ID       string
	Name     string
	Side     domain.SideID
	Strategy Brain
}

// Play asks the agent to calculate its next move against the canonical
// state. Accepted moves carry a fresh move id so the replay cache treats
// each bot action as distinct.
func (a *Agent) Play(st *domain.GameState) (*domain.Move, error) {
	side := a.Side
	if side == domain.SideNone {
		side = domain.SideOpp
	}
	mv, err := a.Strategy.CalculateMove(st, side)
	if err != nil || mv == nil {
		return nil, err
	}
	if mv.MoveID == "" {
		mv.MoveID = uuid.NewString()
	}
	return mv, nil
}

// OnGameEvent notifies the agent of a match event.
func (a *Agent) OnGameEvent(event interface{}) {
	a.Strategy.OnEvent(event)
}
