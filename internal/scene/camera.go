package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera defaults, matching the browser renderer's perspective camera.
const (
	DefaultFovY = 75.0 // degrees
	DefaultNear = 0.1
	DefaultFar  = 1000.0
)

// Viewport is the drawing surface size in CSS pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both dimensions are positive.
func (v Viewport) Valid() bool { return v.Width > 0 && v.Height > 0 }

// Aspect is width/height, or 1 for an invalid viewport.
func (v Viewport) Aspect() float64 {
	if !v.Valid() {
		return 1
	}
	return float64(v.Width) / float64(v.Height)
}

// Camera is a perspective camera looking from Eye at Target.
type Camera struct {
	Eye    mgl64.Vec3
	Target mgl64.Vec3
	Up     mgl64.Vec3
	FovY   float64 // degrees
	Aspect float64
	Near   float64
	Far    float64
}

// NewCamera returns the default camera at (0,0,5) looking at the origin.
func NewCamera(aspect float64) *Camera {
	return &Camera{
		Eye:    mgl64.Vec3{0, 0, 5},
		Target: mgl64.Vec3{0, 0, 0},
		Up:     mgl64.Vec3{0, 1, 0},
		FovY:   DefaultFovY,
		Aspect: aspect,
		Near:   DefaultNear,
		Far:    DefaultFar,
	}
}

// SetAspect updates the projection aspect ratio.
func (c *Camera) SetAspect(aspect float64) {
	if aspect > 0 {
		c.Aspect = aspect
	}
}

// LookAt moves the camera. A degenerate pose is ignored: eye == target, a
// view direction parallel to Up, or any non-finite coordinate.
func (c *Camera) LookAt(eye, target mgl64.Vec3) bool {
	if !finite(eye) || !finite(target) {
		return false
	}
	d := eye.Sub(target)
	if d.Len() < 1e-9 {
		return false
	}
	if d.Normalize().Cross(c.Up).Len() < 1e-6 {
		return false
	}
	c.Eye, c.Target = eye, target
	return true
}

// View is the world-to-camera matrix.
func (c *Camera) View() mgl64.Mat4 { return mgl64.LookAtV(c.Eye, c.Target, c.Up) }

// Projection is the perspective projection matrix.
func (c *Camera) Projection() mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(c.FovY), c.Aspect, c.Near, c.Far)
}

// Ray casts from the camera through a point in normalized device
// coordinates (both axes in [-1, 1], +y up).
func (c *Camera) Ray(ndcX, ndcY float64) Ray {
	inv := c.Projection().Mul4(c.View()).Inv()
	far := unproject(inv, mgl64.Vec3{ndcX, ndcY, 1})
	return Ray{Origin: c.Eye, Dir: far.Sub(c.Eye).Normalize()}
}

// Project maps a world point to viewport pixels (origin top-left).
// ok is false when the point is behind the camera.
func (c *Camera) Project(p mgl64.Vec3, vp Viewport) (x, y float64, ok bool) {
	clip := c.Projection().Mul4(c.View()).Mul4x1(p.Vec4(1))
	if clip.W() <= 0 {
		return 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	x = (ndc.X() + 1) / 2 * float64(vp.Width)
	y = (1 - ndc.Y()) / 2 * float64(vp.Height)
	return x, y, true
}

func finite(v mgl64.Vec3) bool {
	for _, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func unproject(inv mgl64.Mat4, ndc mgl64.Vec3) mgl64.Vec3 {
	v := inv.Mul4x1(ndc.Vec4(1))
	return v.Vec3().Mul(1 / v.W())
}
