// Package odometry integrates a differential-drive pose from wheel encoder counts.
package odometry

import (
	"math"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/coursebot/utils"
)

// Geometry is the fixed wheel geometry of the robot in mm.
type Geometry struct {
	TireDiameter float64 `json:"tire_diameter_mm"`
	WheelTread   float64 `json:"wheel_tread_mm"`
}

// DefaultGeometry returns the geometry of the competition chassis.
func DefaultGeometry() Geometry {
	return Geometry{TireDiameter: 81, WheelTread: 120}
}

// Validate ensures the geometry is physically meaningful.
func (g Geometry) Validate(path string) error {
	if g.TireDiameter <= 0 {
		return goutils.NewConfigValidationError(path, errors.Errorf("tire_diameter_mm must be positive, got %v", g.TireDiameter))
	}
	if g.WheelTread <= 0 {
		return goutils.NewConfigValidationError(path, errors.Errorf("wheel_tread_mm must be positive, got %v", g.WheelTread))
	}
	return nil
}

// Pose is the dead-reckoned position of the robot. Azimuth is in radians within
// [0, 2π) and grows with left turns; X and Y are in mm with Y pointing along
// the starting heading.
type Pose struct {
	Distance float64
	Azimuth  float64
	X        float64
	Y        float64
}

// AzimuthDegrees returns the azimuth truncated to whole degrees in [0, 360).
func (p Pose) AzimuthDegrees() int {
	degree := int(utils.RadToDeg(p.Azimuth))
	if degree >= 360 {
		degree -= 360
	}
	return degree
}

// Degree returns the azimuth as signed whole degrees in (-180, 180].
func (p Pose) Degree() int {
	degree := p.AzimuthDegrees()
	if degree > 180 {
		degree -= 360
	}
	return degree
}

// DistanceMM returns the traveled distance truncated to mm.
func (p Pose) DistanceMM() int {
	return int(p.Distance)
}

// LocX returns X truncated to mm.
func (p Pose) LocX() int {
	return int(p.X)
}

// LocY returns Y truncated to mm.
func (p Pose) LocY() int {
	return int(p.Y)
}

// An Integrator accumulates a Pose from successive encoder counts. It is owned
// by a single writer and is not safe for concurrent use.
type Integrator struct {
	geometry     Geometry
	pose         Pose
	prevL, prevR int64
}

// NewIntegrator returns an integrator at the origin with zero baselines.
func NewIntegrator(geometry Geometry) *Integrator {
	return &Integrator{geometry: geometry}
}

// Geometry returns the wheel geometry.
func (i *Integrator) Geometry() Geometry {
	return i.geometry
}

// Update integrates the encoder movement since the previous call and returns the new pose.
func (i *Integrator) Update(countL, countR int64) Pose {
	deltaL := math.Pi * i.geometry.TireDiameter * float64(countL-i.prevL) / 360.0
	deltaR := math.Pi * i.geometry.TireDiameter * float64(countR-i.prevR) / 360.0
	delta := (deltaL + deltaR) / 2.0
	i.prevL, i.prevR = countL, countR

	i.pose.Distance += delta
	i.pose.Azimuth = utils.ModAngRad(i.pose.Azimuth + math.Atan2(deltaL-deltaR, i.geometry.WheelTread))
	i.pose.X += delta * math.Sin(i.pose.Azimuth)
	i.pose.Y += delta * math.Cos(i.pose.Azimuth)
	return i.pose
}

// Reset zeroes the pose and takes the given counts as the new baselines.
func (i *Integrator) Reset(countL, countR int64) {
	i.pose = Pose{}
	i.prevL, i.prevR = countL, countR
}

// Pose returns the current pose.
func (i *Integrator) Pose() Pose {
	return i.pose
}

// TurnDegrees returns the absolute shortest turn between two headings in whole degrees.
func TurnDegrees(prev, cur int) int {
	return utils.TurnDegrees(prev, cur)
}
