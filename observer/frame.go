package observer

import (
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"go.viam.com/coursebot/components/sensor"
	"go.viam.com/coursebot/control"
	"go.viam.com/coursebot/course"
	"go.viam.com/coursebot/odometry"
)

// HSV is a color in hue degrees [0, 360) with saturation and value in [0, 1].
type HSV struct {
	H float64
	S float64
	V float64
}

// Frame is the fused sensor snapshot of one tick. The observer is its only writer.
type Frame struct {
	Time              time.Time
	RGB               sensor.RGB
	HSV               HSV
	GrayScale         int
	GrayScaleBlueless int
	Angle             int
	AngularVelocity   int
	Sonar             int
	Touch             bool
	BackButton        bool
	// Brightness is only sampled at StepClearFourth and in the garage.
	Brightness int
	Pose       odometry.Pose
	Step       course.Step
}

// GrayScale returns the luma of rgb on a 0-255 scale.
func GrayScale(rgb sensor.RGB) int {
	return (rgb.R*77 + rgb.G*150 + rgb.B*29) / 256
}

// GrayScaleBlueless is GrayScale with green subtracted from blue, which cuts out the blue line.
func GrayScaleBlueless(rgb sensor.RGB) int {
	return (rgb.R*77 + rgb.G*150 + (rgb.B-rgb.G)*29) / 256
}

// ToHSV converts rgb to HSV.
func ToHSV(rgb sensor.RGB) HSV {
	c := colorful.Color{R: float64(rgb.R) / 255, G: float64(rgb.G) / 255, B: float64(rgb.B) / 255}
	h, s, v := c.Hsv()
	return HSV{H: h, S: s, V: v}
}

// rgbFilter low-passes each color channel.
type rgbFilter struct {
	r, g, b *control.FIR
}

func newRGBFilter(hn []float64) (*rgbFilter, error) {
	var f rgbFilter
	var err error
	if f.r, err = control.NewFIR(hn); err != nil {
		return nil, err
	}
	if f.g, err = control.NewFIR(hn); err != nil {
		return nil, err
	}
	if f.b, err = control.NewFIR(hn); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *rgbFilter) next(raw sensor.RGB) sensor.RGB {
	channel := func(fir *control.FIR, x int) int {
		y, _ := fir.Next(float64(x))
		v := int(y)
		if v < 0 {
			return 0
		}
		if v > 255 {
			return 255
		}
		return v
	}
	return sensor.RGB{R: channel(f.r, raw.R), G: channel(f.g, raw.G), B: channel(f.b, raw.B)}
}

func (f *rgbFilter) order() int {
	return f.r.Order()
}
