package scene

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
)

// ErrNoScene is returned when a model has no nodes to show.
var ErrNoScene = errors.New("scene: model has no nodes")

// OpenGLTF loads a .gltf/.glb model from disk.
func OpenGLTF(path string) (*Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return fromDocument(doc)
}

// LoadGLTF decodes a model from r. External buffers are not needed: only
// node transforms and POSITION accessor bounds are read.
func LoadGLTF(r io.Reader) (*Scene, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, fmt.Errorf("decode gltf: %w", err)
	}
	return fromDocument(doc)
}

func fromDocument(doc *gltf.Document) (*Scene, error) {
	if len(doc.Nodes) == 0 {
		return nil, ErrNoScene
	}
	built := make([]*Node, len(doc.Nodes))
	var build func(i int) *Node
	build = func(i int) *Node {
		if built[i] != nil {
			return built[i]
		}
		gn := doc.Nodes[i]
		n := &Node{Name: gn.Name, Local: localMatrix(gn)}
		built[i] = n
		if gn.Mesh != nil && *gn.Mesh < len(doc.Meshes) {
			n.Mesh = &Mesh{Name: meshName(gn, doc.Meshes[*gn.Mesh]), Bounds: meshBounds(doc, doc.Meshes[*gn.Mesh])}
		}
		for _, c := range gn.Children {
			if c >= 0 && c < len(doc.Nodes) {
				n.Children = append(n.Children, build(c))
			}
		}
		return n
	}

	var roots []*Node
	for _, i := range rootIndexes(doc) {
		roots = append(roots, build(i))
	}
	if len(roots) == 0 {
		return nil, ErrNoScene
	}
	return New(roots...), nil
}

// rootIndexes returns the default scene's nodes, or every parentless node
// when the model declares no scene.
func rootIndexes(doc *gltf.Document) []int {
	if len(doc.Scenes) > 0 {
		si := 0
		if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
			si = *doc.Scene
		}
		return doc.Scenes[si].Nodes
	}
	child := make(map[int]bool)
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			child[c] = true
		}
	}
	var out []int
	for i := range doc.Nodes {
		if !child[i] {
			out = append(out, i)
		}
	}
	return out
}

func meshName(n *gltf.Node, m *gltf.Mesh) string {
	if n.Name != "" {
		return n.Name
	}
	return m.Name
}

// localMatrix prefers an explicit matrix, else composes T*R*S.
func localMatrix(n *gltf.Node) mgl64.Mat4 {
	var zero [16]float64
	if n.Matrix != zero {
		m := mgl64.Mat4(n.Matrix)
		if m != mgl64.Ident4() {
			return m
		}
	}
	t := n.Translation
	r := n.Rotation
	s := n.Scale
	if r == [4]float64{} {
		r = [4]float64{0, 0, 0, 1}
	}
	if s == [3]float64{} {
		s = [3]float64{1, 1, 1}
	}
	q := mgl64.Quat{W: r[3], V: mgl64.Vec3{r[0], r[1], r[2]}}.Normalize()
	return mgl64.Translate3D(t[0], t[1], t[2]).
		Mul4(q.Mat4()).
		Mul4(mgl64.Scale3D(s[0], s[1], s[2]))
}

// meshBounds unions the POSITION accessor min/max of every primitive.
func meshBounds(doc *gltf.Document, m *gltf.Mesh) AABB {
	b := EmptyAABB()
	for _, p := range m.Primitives {
		idx, ok := p.Attributes["POSITION"]
		if !ok || idx < 0 || idx >= len(doc.Accessors) {
			continue
		}
		acc := doc.Accessors[idx]
		if len(acc.Min) < 3 || len(acc.Max) < 3 {
			continue
		}
		b = b.Extend(mgl64.Vec3{acc.Min[0], acc.Min[1], acc.Min[2]})
		b = b.Extend(mgl64.Vec3{acc.Max[0], acc.Max[1], acc.Max[2]})
	}
	return b
}
