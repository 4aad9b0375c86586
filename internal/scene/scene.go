// internal/scene/scene.go
//
// Scene graph for the house model.
// Responsibilities:
//   - Hold the node tree loaded from the model (names, local transforms).
//   - Expose pickable meshes with world-space bounds.
//   - Answer ray queries, nearest hit first.
//
// Notes:
//   - Intersection is against each mesh's world AABB, computed once at load.
//   - A Scene is read-only after construction and may be shared by sessions.

package scene

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/robalobadob/househunt/internal/catalog"
)

// Node is one element of the scene tree.
type Node struct {
	Name     string
	Local    mgl64.Mat4
	World    mgl64.Mat4
	Children []*Node
	Mesh     *Mesh // nil for group/transform-only nodes
}

// Mesh is a renderable, pickable object.
type Mesh struct {
	Name   string
	Bounds AABB // world space
	World  mgl64.Mat4
}

// PickID implements catalog.Pickable.
func (m *Mesh) PickID() catalog.Identifier { return m.Name }

// Position is the world-space origin of the mesh node, used as the label
// anchor.
func (m *Mesh) Position() mgl64.Vec3 { return m.World.Col(3).Vec3() }

// Intersection is one ray hit.
type Intersection struct {
	Mesh     *Mesh
	Distance float64
	Point    mgl64.Vec3
}

// Scene is the loaded scene graph.
type Scene struct {
	Roots  []*Node
	meshes []*Mesh
}

// New builds a scene from root nodes, resolving world transforms.
func New(roots ...*Node) *Scene {
	s := &Scene{Roots: roots}
	for _, r := range roots {
		resolve(r, mgl64.Ident4())
	}
	s.Traverse(func(n *Node) {
		if n.Mesh != nil {
			s.meshes = append(s.meshes, n.Mesh)
		}
	})
	return s
}

// resolve fills World for n and its subtree and moves mesh bounds to world
// space. Mesh bounds are expected in local space before this runs.
func resolve(n *Node, parent mgl64.Mat4) {
	n.World = parent.Mul4(n.Local)
	if n.Mesh != nil {
		n.Mesh.World = n.World
		n.Mesh.Bounds = n.Mesh.Bounds.Transform(n.World)
		if n.Mesh.Name == "" {
			n.Mesh.Name = n.Name
		}
	}
	for _, c := range n.Children {
		resolve(c, n.World)
	}
}

// Traverse visits every node depth-first, parents before children.
func (s *Scene) Traverse(fn func(*Node)) {
	var walk func(*Node)
	walk = func(n *Node) {
		fn(n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range s.Roots {
		walk(r)
	}
}

// Meshes returns the meshes in traversal order.
func (s *Scene) Meshes() []*Mesh {
	out := make([]*Mesh, len(s.meshes))
	copy(out, s.meshes)
	return out
}

// Pickables returns every mesh as a catalog.Pickable, in traversal order.
func (s *Scene) Pickables() []catalog.Pickable {
	out := make([]catalog.Pickable, 0, len(s.meshes))
	for _, m := range s.meshes {
		out = append(out, m)
	}
	return out
}

// Bounds is the union of all mesh bounds.
func (s *Scene) Bounds() AABB {
	b := EmptyAABB()
	for _, m := range s.meshes {
		b = b.Union(m.Bounds)
	}
	return b
}

// Intersect returns all meshes hit by r, nearest first.
func (s *Scene) Intersect(r Ray) []Intersection {
	var hits []Intersection
	for _, m := range s.meshes {
		if t, ok := m.Bounds.IntersectRay(r); ok {
			hits = append(hits, Intersection{Mesh: m, Distance: t, Point: r.At(t)})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	return hits
}
