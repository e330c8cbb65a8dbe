package app

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayusman/gymcoach/internal/config"
	"github.com/ayusman/gymcoach/internal/exercise"
	"github.com/ayusman/gymcoach/internal/form"
	"github.com/ayusman/gymcoach/internal/store"
)

// LoadProfile returns the reference profile for an exercise: the built-in
// one tuned by t, overlaid with the active stored profile if there is one.
// A stored profile that cannot be decoded is logged and ignored.
func LoadProfile(st *store.Store, t *config.Tuning, name string) (*form.Profile, error) {
	base, err := exercise.DefaultProfile(name)
	if err != nil {
		return nil, err
	}
	if t == nil {
		t = config.EmptyTuning()
	}
	base = t.TuneProfile(base)
	if st == nil {
		return base, nil
	}

	stored, err := st.Profiles().GetActive(name)
	if errors.Is(err, store.ErrNotFound) {
		return base, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load active %s profile: %w", name, err)
	}

	p, err := ApplyStoredProfile(base, stored)
	if err != nil {
		Logf("ignoring profile %s: %v", stored.Name, err)
		return base, nil
	}
	return p, nil
}

// ApplyStoredProfile overlays a stored profile's curves and tempo on base.
func ApplyStoredProfile(base *form.Profile, stored *store.Profile) (*form.Profile, error) {
	var rec form.Recording
	if len(stored.Curves) > 0 {
		if err := json.Unmarshal(stored.Curves, &rec); err != nil {
			return nil, fmt.Errorf("decode curves: %w", err)
		}
	}
	curves, err := rec.Curves()
	if err != nil {
		return nil, err
	}
	for name := range curves {
		if !hasSignal(base, name) {
			return nil, fmt.Errorf("curve for unknown signal %q", name)
		}
	}

	p := base.WithCurves(curves)
	p.Name = stored.Name
	if stored.IdealDuration > 0 {
		p.IdealDuration = stored.IdealDuration
	}
	if stored.TempoTolerance > 0 {
		p.TempoTolerance = stored.TempoTolerance
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func hasSignal(p *form.Profile, name string) bool {
	for _, s := range p.Signals {
		if s.Name == name {
			return true
		}
	}
	return false
}
