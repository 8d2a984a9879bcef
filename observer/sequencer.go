package observer

import (
	"time"

	"go.viam.com/coursebot/components/sensor"
	"go.viam.com/coursebot/course"
	"go.viam.com/coursebot/event"
	"go.viam.com/coursebot/odometry"
	"go.viam.com/coursebot/utils"
)

// phase gates which part of the table is live.
type phase int

const (
	approachPhase phase = iota
	slalomPhase
	garagePhase
)

// challengeState is everything the sequencer remembers between ticks.
type challengeState struct {
	step course.Step

	blue2    bool
	moveBack bool
	slalom   bool
	garage   bool
	finished bool
	lineOver bool

	prevRgbSum int
	curAngle   int
	prevAngle  int
	prevDegree int
	cntDegree  int
	turnDegree int
	prevDis    float64
	prevDisX   float64
	prevDisY   float64
	rootsNo    int
}

func newChallengeState() challengeState {
	return challengeState{step: course.StepApproach, blue2: true}
}

// tick is the input of one rule evaluation and collects the hardware effects
// the rule asks for.
type tick struct {
	st     *challengeState
	rgb    sensor.RGB
	sum    int
	sonar  int
	degree int
	pose   odometry.Pose

	arm           []int
	resetOdometry bool
}

func (t *tick) azimuth() int {
	return t.pose.AzimuthDegrees()
}

// accumulate adds the turn since the last sample to the turn counter.
func (t *tick) accumulate() {
	x := t.azimuth()
	t.st.cntDegree += utils.TurnDegrees(t.st.prevDegree, x)
	t.st.prevDegree = x
}

func (t *tick) black() bool {
	return t.rgb.G+t.rgb.B <= 80 && t.rgb.R <= 60 && t.rgb.G <= 40 && t.rgb.B <= 45
}

func (t *tick) red(maxGreen int) bool {
	return t.rgb.R-t.rgb.B >= 40 && t.rgb.G < maxGreen && t.rgb.R-t.rgb.G > 30
}

func (t *tick) yellow() bool {
	return t.rgb.R+t.rgb.G-t.rgb.B >= 160 && t.rgb.R-t.rgb.G <= 30
}

// blockAhead is the yellow of the block at close range, where red and green
// both read high.
func (t *tick) blockAhead() bool {
	return t.rgb.R+t.rgb.G-t.rgb.B >= 160
}

func (t *tick) pastYellow() bool {
	return t.rgb.R+t.rgb.G-t.rgb.B <= 130
}

func (t *tick) green() bool {
	return t.rgb.R <= 13 && t.rgb.B <= 50 && t.rgb.G > 60
}

func (t *tick) dark() bool {
	return t.rgb.R+t.rgb.G <= 50
}

func (t *tick) sonarIn(from, to int) bool {
	return Band{From: from, To: to}.Contains(t.sonar)
}

func (t *tick) turnedSince() int {
	return utils.AbsInt(t.degree - t.st.prevDegree)
}

// a branch is one guarded way out of a step. The first branch whose guard holds fires.
type branch struct {
	when  func(t *tick) bool
	raise bool
	event event.Event
	// reportAt is the step carried by the raised trigger; it defaults to the rule's step.
	reportAt course.Step
	atSet    bool
	next     course.Step
	hold     time.Duration
	apply    func(t *tick)
}

func goTo(next course.Step, when func(t *tick) bool) branch {
	return branch{when: when, next: next}
}

func raise(ev event.Event, next course.Step, when func(t *tick) bool) branch {
	return branch{when: when, raise: true, event: ev, next: next}
}

func (b branch) at(step course.Step) branch {
	b.reportAt, b.atSet = step, true
	return b
}

func (b branch) do(apply func(t *tick)) branch {
	b.apply = apply
	return b
}

func (b branch) holding(d time.Duration) branch {
	b.hold = d
	return b
}

// a rule is everything evaluated while the sequencer sits at one step.
type rule struct {
	phase phase
	// track runs every tick before the branches.
	track    func(t *tick)
	branches []branch
	// after runs every tick after the branches, whether one fired or not.
	after func(t *tick)
}

func (r *rule) evaluate(t *tick) *branch {
	if r.track != nil {
		r.track(t)
	}
	var fired *branch
	for i := range r.branches {
		b := &r.branches[i]
		if b.when(t) {
			if b.apply != nil {
				b.apply(t)
			}
			fired = b
			break
		}
	}
	if r.after != nil {
		r.after(t)
	}
	return fired
}

func always(*tick) bool { return true }

var challengeTable = buildChallengeTable()

func buildChallengeTable() map[course.Step]*rule {
	slalom := func(branches ...branch) *rule {
		return &rule{phase: slalomPhase, branches: branches}
	}
	garage := func(branches ...branch) *rule {
		return &rule{phase: garagePhase, branches: branches}
	}
	sc := event.SlalomChallenge
	bc := event.BlockChallenge
	markX := func(t *tick) { t.st.prevDisX = t.pose.X }
	markDis := func(t *tick) { t.st.prevDis = t.pose.Distance }
	markAz := func(t *tick) { t.st.prevDegree = t.azimuth() }
	markDegree := func(t *tick) { t.st.prevDegree = t.degree }
	clearLine := func(t *tick) {
		t.st.prevRgbSum = t.sum
		t.st.lineOver = false
	}
	startTurn := func(t *tick) {
		t.st.prevDegree = t.azimuth()
		t.st.cntDegree = 0
	}
	garageTurn := func(t *tick) bool { return t.dark() }

	table := map[course.Step]*rule{
		course.StepApproach: {phase: approachPhase, branches: []branch{
			raise(event.SlalomReached, course.StepBackOff, func(t *tick) bool {
				return t.sonarIn(1, 10) && !t.st.moveBack
			}).do(func(t *tick) {
				t.arm = append(t.arm, -50)
				t.resetOdometry = true
			}),
		}},
		course.StepBackOff: {phase: approachPhase, branches: []branch{
			raise(event.SlalomReached, course.StepFindLine, always).do(func(t *tick) {
				t.arm = append(t.arm, 80)
				t.st.moveBack = true
			}),
		}},

		course.StepFindLine: slalom(
			goTo(course.StepOnLine, func(t *tick) bool {
				return t.pose.Distance-t.st.prevDis > 35 && t.sum < 100
			}).do(func(t *tick) {
				t.st.prevDisX = t.pose.X
				t.st.prevRgbSum = t.sum
			}),
			raise(sc, course.StepLeftCurve, func(t *tick) bool {
				return t.pose.Distance-t.st.prevDis > 35
			}).do(func(t *tick) {
				t.st.prevDisX = t.pose.X
				t.st.prevRgbSum = t.sum
			}),
		),
		course.StepLeftCurve: slalom(
			goTo(course.StepOnLine, func(t *tick) bool { return t.sum < 100 }).do(markX),
			// still closing in on the black, keep curving
			raise(sc, course.StepReturn, func(t *tick) bool {
				return utils.AbsInt(int(t.st.prevDisX-t.pose.X)) > 200 && !(t.st.prevRgbSum-t.sum > 20)
			}),
		),
		course.StepReturn: slalom(
			raise(sc, course.StepRightCurve, func(t *tick) bool { return t.st.prevDisX-t.pose.X <= 0 }),
			goTo(course.StepOnLine, func(t *tick) bool { return t.sum < 100 }).do(markX),
		),
		course.StepRightCurve: slalom(
			raise(sc, course.StepOnLine, func(t *tick) bool { return t.sum < 100 }).do(markX),
		),
		course.StepOnLine:      slalom(raise(sc, course.StepSpinLeft, always)),
		course.StepSpinLeft:    slalom(raise(sc, course.StepCrossSideways, func(t *tick) bool { return t.degree < -70 })),
		course.StepCrossSideways: slalom(raise(sc, course.StepRealign, func(t *tick) bool {
			return utils.AbsInt(int(t.st.prevDisX-t.pose.X)) > 120
		})),
		course.StepRealign: slalom(raise(sc, course.StepSecondObstacle, func(t *tick) bool {
			return t.degree > t.st.prevDegree-1
		})),
		course.StepSecondObstacle: slalom(raise(sc, course.StepClearSecond, func(t *tick) bool {
			return t.pose.Y-t.st.prevDisY > 560 || t.sonarIn(0, 5)
		}).do(clearLine)),
		course.StepClearSecond: slalom(raise(sc, course.StepCrossToThird, func(t *tick) bool {
			return t.sonarIn(50, 255) || t.turnedSince() > 55
		}).do(clearLine)),
		course.StepCrossToThird: {
			phase: slalomPhase,
			track: func(t *tick) {
				if !t.st.lineOver && t.sum < 100 {
					t.st.prevRgbSum = t.sum
					t.st.prevDisY = t.pose.Y
				}
			},
			branches: []branch{
				raise(sc, course.StepThirdObstacle, func(t *tick) bool {
					return !t.st.lineOver && t.st.prevRgbSum < 100 && t.sum > 120
				}).do(func(t *tick) {
					t.st.prevDegree = t.degree
					t.st.lineOver = true
				}),
			},
		},
		course.StepThirdObstacle: slalom(raise(sc, course.StepClearThird, func(t *tick) bool {
			return t.turnedSince() > 55
		}).do(func(t *tick) {
			t.st.lineOver = true
			t.st.prevDegree = t.degree
		})),
		course.StepClearThird: slalom(raise(sc, course.StepCrossToFourth, always).do(clearLine)),
		course.StepCrossToFourth: {
			phase: slalomPhase,
			track: func(t *tick) {
				if !t.st.lineOver && t.sum < 100 {
					t.st.prevRgbSum = t.sum
				}
			},
			branches: []branch{
				raise(sc, course.StepFourthApproach, func(t *tick) bool {
					return !t.st.lineOver && t.st.prevRgbSum < 100 && t.sum > 195
				}).do(func(t *tick) { t.st.lineOver = true }),
			},
			after: markDegree,
		},
		course.StepFourthApproach: slalom(raise(sc, course.StepFourthObstacle, func(t *tick) bool {
			return t.sonarIn(0, 30) && t.turnedSince() > 60
		})),
		course.StepFourthObstacle: slalom(raise(sc, course.StepClearFourth, func(t *tick) bool {
			return t.sonarIn(0, 5)
		}).do(markDegree)),
		course.StepClearFourth: slalom(raise(sc, course.StepSecondLine, func(t *tick) bool {
			return t.sonarIn(21, 255) && t.turnedSince() > 70
		}).do(clearLine)),
		course.StepSecondLine: {
			phase: slalomPhase,
			branches: []branch{
				raise(sc, course.StepDescend, func(t *tick) bool { return t.st.lineOver && t.sum < 60 }),
			},
			after: func(t *tick) {
				if !t.st.lineOver {
					if t.sum < 100 {
						t.st.prevRgbSum = t.sum
					}
					if t.st.prevRgbSum < 100 && t.sum > 150 {
						t.st.lineOver = true
					}
				}
				t.st.prevDegree = t.degree
			},
		},
		course.StepDescend: slalom(raise(sc, course.StepGarageEntry, func(t *tick) bool {
			return t.turnedSince() > 70
		}).do(func(t *tick) { t.arm = append(t.arm, 30) })),

		// the pose was just reset on entering the garage; wait until it reads sane
		course.StepGarageEntry: garage(goTo(course.StepGarageSettle, func(t *tick) bool {
			return t.pose.Distance < 100 && t.pose.Distance > 1
		})),
		course.StepGarageSettle: garage(raise(bc, course.StepSonarSweep, func(t *tick) bool {
			return t.pose.Distance > 200
		})),
		course.StepSonarSweep: garage(goTo(course.StepHeadToGrid, func(t *tick) bool {
			return t.sonarIn(155, 250)
		}).do(markAz)),
		// the hold keeps the black line just ahead from being taken for the grid edge
		course.StepHeadToGrid: garage(raise(bc, course.StepGridCross, func(t *tick) bool {
			return utils.AbsInt(t.azimuth()-t.st.prevDegree) > 17
		}).do(markDis).holding(time.Second)),
		course.StepGridCross: garage(
			raise(bc, course.StepBlackTrace, (*tick).black).at(course.StepBlackCross),
			raise(bc, course.StepRedTurn, func(t *tick) bool { return t.red(65) }).at(course.StepRedCross).do(markAz),
			raise(bc, course.StepYellowShift, (*tick).yellow).at(course.StepYellowCross).holding(100*time.Millisecond),
		),
		course.StepYellowShift: garage(raise(bc, course.StepYellowApproach, always).do(markDis)),
		course.StepBlackTrace: garage(raise(event.LineOnPControl, course.StepBlackLine, always).do(func(t *tick) {
			t.st.prevDegree = t.azimuth()
			t.st.rootsNo = 1
		})),
		course.StepRedTurn: garage(raise(bc, course.StepToBlock, func(t *tick) bool {
			return t.azimuth()-t.st.prevDegree > 73
		}).do(func(t *tick) { t.st.rootsNo = 2 })),
		course.StepYellowApproach: garage(raise(event.LineOnPIDControl, course.StepToBlock, func(t *tick) bool {
			return t.pastYellow() && t.pose.Distance-t.st.prevDis > 50
		})),
		course.StepBlackLine: garage(
			raise(event.BlockAreaIn, course.StepYellowTurning, (*tick).yellow).at(course.StepYellowTurn).do(func(t *tick) {
				x := t.azimuth()
				t.st.cntDegree = t.st.prevDegree - x
				t.st.prevDegree = x
			}),
			raise(event.BlockAreaIn, course.StepRedLeave, func(t *tick) bool { return t.red(60) }).at(course.StepRedArea),
		),
		course.StepYellowTurning: garage(raise(bc, course.StepYellowRun, func(t *tick) bool {
			return t.st.prevDegree-t.azimuth()+t.st.cntDegree > 82
		}).do(markDis)),
		course.StepYellowRun: garage(raise(event.LineOnPIDControl, course.StepToBlock, func(t *tick) bool {
			return t.pose.Distance-t.st.prevDis > 180 && t.pastYellow()
		})),
		course.StepRedLeave:  garage(goTo(course.StepRedSecond, func(t *tick) bool { return t.rgb.R-t.rgb.B < 20 })),
		course.StepRedSecond: garage(goTo(course.StepRedExit, func(t *tick) bool { return t.rgb.R-t.rgb.B >= 40 })),
		course.StepRedExit: garage(
			// far off the line, curve back to it
			raise(bc, course.StepBackToLine, func(t *tick) bool { return t.sum > 300 }).
				at(course.StepOffLine).holding(10*time.Millisecond),
			raise(event.LineOnPIDControl, course.StepBlackLine, func(t *tick) bool { return t.sum <= 100 }).
				at(course.StepRedTrace),
		),
		course.StepBackToLine: garage(raise(event.LineOnPIDControl, course.StepBlackLine, always)),
		course.StepToBlock:    garage(goTo(course.StepBlockReached, (*tick).blockAhead)),
		course.StepBlockReached: garage(raise(event.BlockAreaIn, course.StepTurnAround, always).do(func(t *tick) {
			startTurn(t)
			// coming from the red corner needs a wider turn
			if t.st.rootsNo == 2 {
				t.st.turnDegree = 140
			} else {
				t.st.turnDegree = 80
			}
		})),
		course.StepTurnAround: garage(
			raise(bc, course.StepSeekOpen, func(t *tick) bool { return t.st.cntDegree > t.st.turnDegree }),
			goTo(course.StepTurnAround, always).do((*tick).accumulate),
		),
		course.StepSeekOpen: garage(goTo(course.StepOpenTurn, func(t *tick) bool {
			return t.sonar == sensor.SonarOutOfRange
		}).do(startTurn)),
		course.StepOpenTurn: {
			phase: garagePhase,
			track: (*tick).accumulate,
			branches: []branch{
				raise(bc, course.StepToGarageLine, func(t *tick) bool { return t.st.cntDegree >= 0 }).do(markDis),
			},
		},
		course.StepToGarageLine: garage(goTo(course.StepSeekGreen, func(t *tick) bool {
			return t.pose.Distance-t.st.prevDis > 500
		})),
		course.StepSeekGreen: garage(
			raise(bc, course.StepGreenSlow, (*tick).green),
			raise(bc, course.StepSeekBack, garageTurn).at(course.StepGarageTurn).holding(500*time.Millisecond),
		),
		course.StepGreenSlow: garage(
			raise(bc, course.StepGarageTurn, (*tick).green),
			raise(bc, course.StepSeekBack, garageTurn).at(course.StepGarageTurn).holding(500*time.Millisecond),
		),
		// without a guard of its own the script would stall here after the second green
		course.StepGarageTurn: garage(
			raise(bc, course.StepSeekBack, garageTurn).holding(500 * time.Millisecond),
		),
		course.StepSeekBack: garage(goTo(course.StepAlignBack, func(t *tick) bool {
			return t.sonarIn(35, 250)
		}).do(startTurn)),
		course.StepAlignBack: {
			phase: garagePhase,
			track: (*tick).accumulate,
			branches: []branch{
				raise(bc, course.StepFinish, func(t *tick) bool { return t.st.cntDegree > 7 }),
			},
		},
		course.StepFinish: garage(raise(bc, course.StepFinish, func(t *tick) bool {
			return t.sonar < 20
		}).do(func(t *tick) {
			t.st.garage = false
			t.st.finished = true
		})),
	}
	for step, r := range table {
		for i := range r.branches {
			if !r.branches[i].atSet {
				r.branches[i].reportAt = step
			}
		}
	}
	return table
}

// CourseGraph returns the shape of the challenge sequencer for validation.
func CourseGraph() course.Graph {
	g := make(course.Graph, len(challengeTable))
	for step, r := range challengeTable {
		edges := make([]course.Edge, 0, len(r.branches))
		for _, b := range r.branches {
			edges = append(edges, course.Edge{Next: b.next, Raises: b.raise, Event: b.event, At: b.reportAt})
		}
		g[step] = edges
	}
	return g
}
