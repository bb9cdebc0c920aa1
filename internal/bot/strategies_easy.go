package bot

import (
	"duelsol/internal/domain"
)

// EasyBot flips what it must and otherwise just churns the stock. It exists
// so new players face an opponent that makes visible progress without
// racing them.
type EasyBot struct{}

func (b *EasyBot) CalculateMove(st *domain.GameState, side domain.SideID) (*domain.Move, error) {
	schema := domain.DetectSchema(st)
	board := st.Board(schema, side)
	if board == nil {
		return nil, nil
	}

	for i := range board.Tableau {
		if top := board.Tableau[i].Top(); top != nil && !top.FaceUp {
			return &domain.Move{
				Kind: domain.MoveFlip,
				From: &domain.ZoneRef{Zone: domain.ZoneTableau, Index: i, SideOwner: side},
			}, nil
		}
	}

	// Waste promotions only; no tableau planning.
	if top := board.Waste.Top(); top != nil && top.FaceUp {
		if _, reason := domain.ResolveFoundationLane(st, *top); reason == domain.ReasonNone {
			return &domain.Move{
				Kind:   domain.MoveToFound,
				CardID: top.ID,
				From:   &domain.ZoneRef{Zone: domain.ZoneWaste, Index: -1, SideOwner: side},
			}, nil
		}
	}

	sref := &domain.ZoneRef{Zone: domain.ZoneStock, Index: -1, SideOwner: side}
	if len(*board.Stock) > 0 {
		return &domain.Move{Kind: domain.MoveDraw, From: sref}, nil
	}
	if len(*board.Waste) > 0 {
		return &domain.Move{Kind: domain.MoveRecycle, From: sref}, nil
	}
	return nil, nil
}

func (b *EasyBot) OnEvent(event interface{}) {}
