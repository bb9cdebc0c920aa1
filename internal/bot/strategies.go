package bot

import (
	"duelsol/internal/domain"
)

// GreedyBot plays the obvious-progress ordering: expose hidden cards, bank
// foundation promotions, shuffle tableau runs that uncover something, then
// cycle the stock.
type GreedyBot struct{}

func (b *GreedyBot) CalculateMove(st *domain.GameState, side domain.SideID) (*domain.Move, error) {
	schema := domain.DetectSchema(st)
	board := st.Board(schema, side)
	if board == nil {
		return nil, nil
	}

	tref := func(i int) *domain.ZoneRef {
		return &domain.ZoneRef{Zone: domain.ZoneTableau, Index: i, SideOwner: side}
	}
	wref := &domain.ZoneRef{Zone: domain.ZoneWaste, Index: -1, SideOwner: side}
	sref := &domain.ZoneRef{Zone: domain.ZoneStock, Index: -1, SideOwner: side}

	// 1. Face-down tops flip for free.
	for i := range board.Tableau {
		if top := board.Tableau[i].Top(); top != nil && !top.FaceUp {
			return &domain.Move{Kind: domain.MoveFlip, From: tref(i)}, nil
		}
	}

	// 2. Promote to a foundation lane, waste first so draws keep flowing.
	if top := board.Waste.Top(); top != nil && top.FaceUp {
		if _, reason := domain.ResolveFoundationLane(st, *top); reason == domain.ReasonNone {
			return &domain.Move{Kind: domain.MoveToFound, CardID: top.ID, From: wref}, nil
		}
	}
	for i := range board.Tableau {
		top := board.Tableau[i].Top()
		if top == nil || !top.FaceUp {
			continue
		}
		if _, reason := domain.ResolveFoundationLane(st, *top); reason == domain.ReasonNone {
			return &domain.Move{Kind: domain.MoveToFound, CardID: top.ID, From: tref(i)}, nil
		}
	}

	// 3. Move a face-up run only when it uncovers a buried card; shuffling
	// a full column back and forth makes no progress.
	for i := range board.Tableau {
		src := board.Tableau[i]
		lead := firstFaceUp(src)
		if lead <= 0 {
			continue
		}
		run := src[lead:]
		for j := range board.Tableau {
			if j == i {
				continue
			}
			dst := board.Tableau[j]
			if len(dst) == 0 {
				if run[0].Rank == domain.RankKing {
					return runMove(run, len(run), tref(i), tref(j)), nil
				}
				continue
			}
			dt := dst.Top()
			if dt.FaceUp && domain.CanStackTableau(run[0], *dt) {
				return runMove(run, len(run), tref(i), tref(j)), nil
			}
		}
	}

	// 4. Play the waste top onto the tableau.
	if top := board.Waste.Top(); top != nil && top.FaceUp {
		for j := range board.Tableau {
			dst := board.Tableau[j]
			if len(dst) == 0 {
				if top.Rank == domain.RankKing {
					return &domain.Move{Kind: domain.MoveToPile, CardID: top.ID, Count: 1, From: wref, To: tref(j)}, nil
				}
				continue
			}
			if dt := dst.Top(); dt.FaceUp && domain.CanStackTableau(*top, *dt) {
				return &domain.Move{Kind: domain.MoveToPile, CardID: top.ID, Count: 1, From: wref, To: tref(j)}, nil
			}
		}
	}

	// 5. Turn the stock over, recycling when it runs dry.
	if len(*board.Stock) > 0 {
		return &domain.Move{Kind: domain.MoveDraw, From: sref}, nil
	}
	if len(*board.Waste) > 0 {
		return &domain.Move{Kind: domain.MoveRecycle, From: sref}, nil
	}
	return nil, nil
}

func (b *GreedyBot) OnEvent(event interface{}) {}

func runMove(run []domain.Card, count int, from, to *domain.ZoneRef) *domain.Move {
	return &domain.Move{
		Kind:   domain.MoveToPile,
		CardID: run[0].ID,
		Count:  count,
		From:   from,
		To:     to,
	}
}

// firstFaceUp returns the index of the first face-up card in a column, or -1
// when the column is empty or fully hidden.
func firstFaceUp(p domain.Pile) int {
	for i := range p {
		if p[i].FaceUp {
			return i
		}
	}
	return -1
}
