package workflow

import (
	"fmt"

	"github.com/google/uuid"
)

// Result is a built workflow together with the notes raised while resolving
// its configuration.
type Result struct {
	ID         uuid.UUID
	Workflow   *Workflow
	Advisories []Advisory
	Background BackgroundMode
	Timeframes []*Timeframe
}

// Build resolves p and constructs the complete workflow: background stages
// first, then each timeframe in order. Configuration errors are returned
// before any stage is created.
func Build(p Parameters) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	ptHat, err := ResolvePtHat(p.PtHatBin, p.Process, p.PtTrigMin, p.PtHatMin, p.PtHatMax)
	if err != nil {
		return nil, err
	}
	beams, notes, err := ResolveCollision(p.CollisionSystem, p.ECM, p.EA, p.EB)
	if err != nil {
		return nil, err
	}
	notes = append(notes, backgroundAdvisories(p)...)
	r := resolved{
		ptHat: ptHat,
		beams: beams,
		rate:  ResolveInteractionRate(p.CollisionSystem, p.InteractionRate),
	}

	c := NewContext()
	bg, err := buildBackground(c, p)
	if err != nil {
		return nil, fmt.Errorf("building background: %w", err)
	}

	res := &Result{ID: ID(p), Advisories: notes, Background: bg.Mode}
	for tf := 1; tf <= p.Timeframes; tf++ {
		t, err := buildTimeframe(c, p, r, bg, tf)
		if err != nil {
			return nil, fmt.Errorf("building timeframe %d: %w", tf, err)
		}
		res.Timeframes = append(res.Timeframes, t)
	}

	res.Workflow = Finalize(c)
	if err := Validate(res.Workflow); err != nil {
		return nil, err
	}
	return res, nil
}
