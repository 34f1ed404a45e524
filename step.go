package soothsayer

import (
	"sort"

	"github.com/soothsayer-db/soothsayer/database"
	"github.com/soothsayer-db/soothsayer/script"
)

// Step is one migration unit at a version: a forward script and an
// optional reverse script that undoes it.
type Step interface {
	Version() int64

	Forward() *script.Script

	// Reverse returns nil when the step can not be rolled back.
	Reverse() *script.Script
}

// DatabaseStep pairs a local forward script with the local reverse script of
// the same version.
type DatabaseStep struct {
	ForwardScript *script.Script
	ReverseScript *script.Script
}

func (s *DatabaseStep) Version() int64 { return s.ForwardScript.Version }

func (s *DatabaseStep) Forward() *script.Script { return s.ForwardScript }

func (s *DatabaseStep) Reverse() *script.Script { return s.ReverseScript }

// StoredStep is a step taken from the applied scripts history: the scripts
// are the ones recorded when the version was applied, not the local files.
type StoredStep struct {
	Applied database.AppliedScript
}

func (s *StoredStep) Version() int64 { return s.Applied.Version }

func (s *StoredStep) Forward() *script.Script { return &s.Applied.Forward }

func (s *StoredStep) Reverse() *script.Script { return s.Applied.Reverse }

// PairSteps left joins forward scripts with reverse scripts on version. A
// forward script without a reverse script still yields a step.
func PairSteps(forward, reverse []*script.Script) []Step {
	byVersion := make(map[int64]*script.Script, len(reverse))
	for _, r := range reverse {
		byVersion[r.Version] = r
	}

	steps := make([]Step, 0, len(forward))
	for _, f := range forward {
		steps = append(steps, &DatabaseStep{ForwardScript: f, ReverseScript: byVersion[f.Version]})
	}
	return steps
}

// StoredSteps turns the applied scripts history into steps.
func StoredSteps(applied []database.AppliedScript) []Step {
	steps := make([]Step, 0, len(applied))
	for _, a := range applied {
		steps = append(steps, &StoredStep{Applied: a})
	}
	return steps
}

// withoutReverse returns the forward scripts that have no reverse script of
// the same version.
func withoutReverse(forward, reverse []*script.Script) []*script.Script {
	versions := make(map[int64]bool, len(reverse))
	for _, r := range reverse {
		versions[r.Version] = true
	}
	var missing []*script.Script
	for _, f := range forward {
		if !versions[f.Version] {
			missing = append(missing, f)
		}
	}
	return missing
}

func ascending(steps []Step) []Step {
	sorted := append([]Step(nil), steps...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Version() < sorted[j].Version() })
	return sorted
}

func descending(steps []Step) []Step {
	sorted := append([]Step(nil), steps...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Version() > sorted[j].Version() })
	return sorted
}

// upWindow selects current < version <= target, ascending. A nil current
// selects from the first step, a nil target up to the last.
func upWindow(steps []Step, current, target *int64) []Step {
	var selected []Step
	for _, s := range ascending(steps) {
		if current != nil && s.Version() <= *current {
			continue
		}
		if target != nil && s.Version() > *target {
			continue
		}
		selected = append(selected, s)
	}
	return selected
}

// downWindow selects target < version <= current, descending. A nil current
// selects nothing, a nil target down to the first step.
func downWindow(steps []Step, current, target *int64) []Step {
	if current == nil {
		return nil
	}
	var selected []Step
	for _, s := range descending(steps) {
		if s.Version() > *current {
			continue
		}
		if target != nil && s.Version() <= *target {
			continue
		}
		selected = append(selected, s)
	}
	return selected
}
