package loader

import (
	"context"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/robalobadob/househunt/assets"
)

const twoMeshModel = `{
 "asset": {"version": "2.0"},
 "scene": 0,
 "scenes": [{"nodes": [0, 1]}],
 "nodes": [
  {"name": "Kettle", "mesh": 0, "translation": [1, 0, 0]},
  {"name": "Toaster", "mesh": 0}
 ],
 "meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
 "accessors": [{"componentType": 5126, "count": 8, "type": "VEC3", "min": [-0.5, -0.5, -0.5], "max": [0.5, 0.5, 0.5]}]
}`

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestLoadEmbeddedDefaults(t *testing.T) {
	l := New("")
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !isClosed(l.Ready()) {
		t.Fatalf("Ready not closed after successful load")
	}
	b := l.Bundle()
	if b == nil || b.Catalog.Len() != 12 {
		t.Fatalf("bundle = %+v", b)
	}
	for _, sp := range DefaultSpecs() {
		f, ok := l.File(sp.Name)
		if !ok || len(f.Data) == 0 {
			t.Fatalf("asset %s not loaded", sp.Name)
		}
	}
	if f, _ := l.File(assets.Background); f.ContentType != "image/jpeg" {
		t.Fatalf("background content type = %q", f.ContentType)
	}
}

func TestDirOverridesEmbedded(t *testing.T) {
	override := fstest.MapFS{assets.Model: {Data: []byte(twoMeshModel)}}
	l := NewFS([]fs.FS{override, assets.FS})
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	names := l.Bundle().Catalog.Names()
	if len(names) != 2 || names[0] != "Kettle" || names[1] != "Toaster" {
		t.Fatalf("catalog = %v", names)
	}
}

func TestOptionalFailureStillReady(t *testing.T) {
	src := fstest.MapFS{
		assets.Model:      {Data: []byte(twoMeshModel)},
		assets.EnvMap:     {Data: []byte("not an hdr")},
		assets.FoundSound: {Data: []byte("RIFF\x00\x00\x00\x00WAVEfmt ")},
	}
	l := NewFS([]fs.FS{src})
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !isClosed(l.Ready()) {
		t.Fatalf("optional failures should not block the game")
	}
	if _, ok := l.File(assets.EnvMap); ok {
		t.Fatalf("invalid env map was kept")
	}
	if _, ok := l.File(assets.Background); ok {
		t.Fatalf("missing background reported as loaded")
	}
	if _, ok := l.File(assets.FoundSound); !ok {
		t.Fatalf("valid audio dropped")
	}
}

func TestModelFailureStallsReady(t *testing.T) {
	src := fstest.MapFS{assets.Model: {Data: []byte("{broken")}}
	l := NewFS([]fs.FS{src})
	if err := l.Load(context.Background()); err == nil {
		t.Fatalf("expected model error")
	}
	if isClosed(l.Ready()) {
		t.Fatalf("Ready closed without a model")
	}
	if l.Bundle() != nil {
		t.Fatalf("bundle published without a model")
	}
	// A second Load is a no-op returning the same error.
	if err := l.Load(context.Background()); err == nil {
		t.Fatalf("second Load lost the error")
	}
}
