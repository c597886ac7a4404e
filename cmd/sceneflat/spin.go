package main

import "github.com/charmbracelet/harmonica"

// SpinAxis tracks position and velocity for one orbit angle with spring decay
type SpinAxis struct {
	Position  float64
	Velocity  float64
	velSpring harmonica.Spring
	velAccel  float64 // internal spring velocity (for animating Velocity toward 0)
}

// NewSpinAxis creates an axis with a critically damped spring.
func NewSpinAxis(fps int) SpinAxis {
	return SpinAxis{
		velSpring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0),
	}
}

// Update applies velocity to position and decays velocity toward 0.
func (a *SpinAxis) Update() {
	a.Position += a.Velocity
	a.Velocity, a.velAccel = a.velSpring.Update(a.Velocity, a.velAccel, 0)
}

// Spin holds the orbit offsets applied on top of the framed camera.
type Spin struct {
	Yaw, Pitch SpinAxis
	fps        int
}

func NewSpin(fps int) *Spin {
	return &Spin{
		Yaw:   NewSpinAxis(fps),
		Pitch: NewSpinAxis(fps),
		fps:   fps,
	}
}

func (s *Spin) Update() {
	s.Yaw.Update()
	s.Pitch.Update()
}

func (s *Spin) ApplyImpulse(yaw, pitch float64) {
	s.Yaw.Velocity += yaw
	s.Pitch.Velocity += pitch
}

func (s *Spin) Reset() {
	s.Yaw = NewSpinAxis(s.fps)
	s.Pitch = NewSpinAxis(s.fps)
}
