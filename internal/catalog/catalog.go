// internal/catalog/catalog.go
//
// Target catalog: the flat list of object identifiers a player can be asked
// to find.
//
// Responsibilities:
//   - Build the catalog once from whatever the scene marks as pickable.
//   - Offer read-only lookups (Names, Len, Contains, Stats).
//
// Notes:
//   • Construction is a capability check against Pickable, not a check on
//     the scene's node types.
//   • Order follows scene traversal order and duplicates are kept as
//     separate entries. Round selection decides what a duplicate name means.
//   • A Catalog is never mutated after Build.

package catalog

// Identifier names one pickable object in the scene.
type Identifier = string

// Pickable is implemented by scene objects that may become round targets.
type Pickable interface {
	PickID() Identifier
}

// Catalog is the immutable, ordered list of identifiers in a loaded scene.
type Catalog struct {
	names []Identifier
	set   map[Identifier]int // identifier -> number of entries
}

// Build constructs a catalog from pickable objects in traversal order.
// Objects with an empty identifier are skipped; they cannot be named in the UI.
func Build(objs []Pickable) *Catalog {
	c := &Catalog{
		names: make([]Identifier, 0, len(objs)),
		set:   make(map[Identifier]int, len(objs)),
	}
	for _, o := range objs {
		if o == nil {
			continue
		}
		id := o.PickID()
		if id == "" {
			continue
		}
		c.names = append(c.names, id)
		c.set[id]++
	}
	return c
}

// FromNames builds a catalog directly from identifiers.
func FromNames(names ...Identifier) *Catalog {
	objs := make([]Pickable, 0, len(names))
	for _, n := range names {
		objs = append(objs, named(n))
	}
	return Build(objs)
}

type named string

func (n named) PickID() Identifier { return string(n) }

// Names returns a copy of the catalog entries in order.
func (c *Catalog) Names() []Identifier {
	if c == nil {
		return nil
	}
	out := make([]Identifier, len(c.names))
	copy(out, c.names)
	return out
}

// Len reports the number of entries, duplicates included.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// Contains reports whether id names at least one entry.
func (c *Catalog) Contains(id Identifier) bool {
	if c == nil {
		return false
	}
	_, ok := c.set[id]
	return ok
}

// Stats returns (entries, distinct identifiers).
func (c *Catalog) Stats() (entries int, distinct int) {
	if c == nil {
		return 0, 0
	}
	return len(c.names), len(c.set)
}
