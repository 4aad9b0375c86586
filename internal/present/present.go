// Package present projects game state into what the player sees: the list
// of remaining targets and a single transient pick label.
//
// Nothing here owns game state. The label tracks a generation counter so a
// dismissal scheduled for an older pick can be recognised and ignored.
package present

import (
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/robalobadob/househunt/internal/catalog"
)

// DefaultLabelDuration is how long a pick label stays visible.
const DefaultLabelDuration = 2000 * time.Millisecond

// ListHeading is the title of the remaining-targets list.
const ListHeading = "Find the objects:"

// RemainingList returns the targets not yet found, in round order.
func RemainingList(targets []catalog.Identifier, found func(catalog.Identifier) bool) []catalog.Identifier {
	out := make([]catalog.Identifier, 0, len(targets))
	for _, id := range targets {
		if found == nil || !found(id) {
			out = append(out, id)
		}
	}
	return out
}

// Render produces the plain-text list: heading then one item per line.
func Render(remaining []catalog.Identifier) string {
	var b strings.Builder
	b.WriteString(ListHeading)
	for _, id := range remaining {
		b.WriteByte('\n')
		b.WriteString(id)
	}
	return b.String()
}

// Anchor places the label: the picked object's world position and, when
// it is in front of the camera, its screen position.
type Anchor struct {
	World    mgl64.Vec3 `json:"world"`
	X        float64    `json:"x"`
	Y        float64    `json:"y"`
	OnScreen bool       `json:"onScreen"`
}

// LabelView is the label as sent to the client.
type LabelView struct {
	Text       string `json:"text"`
	Visible    bool   `json:"visible"`
	Anchor     Anchor `json:"anchor"`
	Generation uint64 `json:"generation"`
	DurationMs int64  `json:"durationMs"`
}

// Label is the one tooltip-style label in the scene.
// Not safe for concurrent use.
type Label struct {
	duration time.Duration
	gen      uint64
	text     string
	anchor   Anchor
	visible  bool
}

// NewLabel returns a hidden label. d <= 0 uses DefaultLabelDuration.
func NewLabel(d time.Duration) *Label {
	if d <= 0 {
		d = DefaultLabelDuration
	}
	return &Label{duration: d}
}

// Duration is how long each Show stays visible.
func (l *Label) Duration() time.Duration { return l.duration }

// Show replaces the current label and returns its generation. Any pending
// dismissal for an earlier generation becomes stale.
func (l *Label) Show(text string, at Anchor) uint64 {
	l.gen++
	l.text = text
	l.anchor = at
	l.visible = true
	return l.gen
}

// Expire hides the label if gen is still the current generation.
// It reports whether anything changed.
func (l *Label) Expire(gen uint64) bool {
	if gen != l.gen || !l.visible {
		return false
	}
	l.visible = false
	return true
}

// View snapshots the label.
func (l *Label) View() LabelView {
	return LabelView{
		Text:       l.text,
		Visible:    l.visible,
		Anchor:     l.anchor,
		Generation: l.gen,
		DurationMs: l.duration.Milliseconds(),
	}
}
