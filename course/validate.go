package course

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/coursebot/event"
)

// An Edge is one way out of a step in the sequencer table.
type Edge struct {
	Next Step
	// Raises is true when taking the edge raises Event reported at step At.
	Raises bool
	Event  event.Event
	At     Step
}

// A Graph is the shape of a sequencer table: every step with its ways out.
type Graph map[Step][]Edge

// Steps returns the steps of g in ascending order.
func (g Graph) Steps() []Step {
	steps := lo.Keys(g)
	sort.Slice(steps, func(i, j int) bool { return steps[i] < steps[j] })
	return steps
}

// Reachable returns every step reachable from start, start included.
func (g Graph) Reachable(start Step) map[Step]bool {
	seen := map[Step]bool{start: true}
	queue := []Step{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range g[cur] {
			if !seen[e.Next] {
				seen[e.Next] = true
				queue = append(queue, e.Next)
			}
		}
	}
	return seen
}

// Validate checks that the sequencer graph and the step actions agree: every
// edge leads to a known step, every step is reachable from StepApproach, and
// every step with an action is raised by some edge.
func Validate(g Graph, actions map[Step]Maneuver) error {
	if _, ok := g[StepApproach]; !ok {
		return errors.Errorf("course has no rule for the starting step %d", StepApproach)
	}
	var err error
	for _, step := range g.Steps() {
		for _, e := range g[step] {
			if _, ok := g[e.Next]; !ok {
				err = multierr.Append(err, errors.Errorf("step %d leads to unknown step %d", step, e.Next))
			}
		}
	}

	reachable := g.Reachable(StepApproach)
	unreachable := lo.Filter(g.Steps(), func(s Step, _ int) bool { return !reachable[s] })
	for _, s := range unreachable {
		err = multierr.Append(err, errors.Errorf("step %d is unreachable", s))
	}

	raised := lo.Uniq(lo.FlatMap(lo.Values(g), func(edges []Edge, _ int) []Step {
		return lo.FilterMap(edges, func(e Edge, _ int) (Step, bool) { return e.At, e.Raises })
	}))
	actionSteps := lo.Keys(actions)
	sort.Slice(actionSteps, func(i, j int) bool { return actionSteps[i] < actionSteps[j] })
	for _, s := range actionSteps {
		if !lo.Contains(raised, s) {
			err = multierr.Append(err, errors.Errorf("action for step %d is never triggered", s))
		}
	}
	return err
}

// ValidateObstacleScript checks that every obstacle step leads to a scripted
// step or to the end of the script.
func ValidateObstacleScript(script map[ObstacleKey]ObstacleAction) error {
	steps := lo.Uniq(lo.Map(lo.Keys(script), func(k ObstacleKey, _ int) int { return k.Step }))
	var err error
	for key, action := range script {
		if action.Next != ObstacleSteps && !lo.Contains(steps, action.Next) {
			err = multierr.Append(err, errors.Errorf("obstacle step %d on %s leads to unknown step %d", key.Step, key.Event, action.Next))
		}
	}
	return err
}
