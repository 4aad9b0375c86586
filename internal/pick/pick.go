// Package pick turns a pointer position into at most one scene object.
//
// Its own contract is small: convert pixels to normalized device
// coordinates and keep the nearest hit along the camera ray. The geometry
// itself is delegated to the scene.
package pick

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/robalobadob/househunt/internal/catalog"
	"github.com/robalobadob/househunt/internal/scene"
)

// Intersecter answers ray queries. *scene.Scene implements it.
type Intersecter interface {
	Intersect(r scene.Ray) []scene.Intersection
}

// Hit is a resolved pick.
type Hit struct {
	ID       catalog.Identifier
	Anchor   mgl64.Vec3 // world position of the picked object
	Point    mgl64.Vec3 // where the ray entered it
	Distance float64
}

// NDC converts viewport pixels (origin top-left) to normalized device
// coordinates (origin centre, +y up).
func NDC(x, y float64, vp scene.Viewport) (float64, float64) {
	if !vp.Valid() {
		return 0, 0
	}
	return (x/float64(vp.Width))*2 - 1, -(y/float64(vp.Height))*2 + 1
}

// Resolve casts a ray through (x, y) and returns the nearest object hit.
func Resolve(x, y float64, vp scene.Viewport, cam *scene.Camera, sc Intersecter) (Hit, bool) {
	if cam == nil || sc == nil || !vp.Valid() {
		return Hit{}, false
	}
	nx, ny := NDC(x, y, vp)
	hits := sc.Intersect(cam.Ray(nx, ny))
	if len(hits) == 0 {
		return Hit{}, false
	}
	best := hits[0]
	for _, h := range hits[1:] {
		if h.Distance < best.Distance {
			best = h
		}
	}
	return Hit{
		ID:       best.Mesh.PickID(),
		Anchor:   best.Mesh.Position(),
		Point:    best.Point,
		Distance: best.Distance,
	}, true
}
