package gl

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func newIdentityPipeline(w, h int) *Pipeline {
	p := NewPipeline(w, h)
	p.SetViewMatrix(mgl32.Ident4())
	p.SetProjectionMatrix(mgl32.Ident4())
	p.SetModelMatrix(mgl32.Ident4())
	return p
}

// TestUnitSquareBoundaryScenario is spec boundary scenario 1: an axis-
// aligned unit square at z=0 under an orthographic (identity) projection
// and a 640x480 viewport produces 2 screen triangles covering exactly
// (0,0)-(639,479).
func TestUnitSquareBoundaryScenario(t *testing.T) {
	p := newIdentityPipeline(640, 480)

	// D--C
	// |  |
	// A--B
	vbo := []GouraudVertex{
		{X: -1, Y: -1, Z: 0, R: 1, G: 0, B: 0}, // A bottom-left
		{X: 1, Y: -1, Z: 0, R: 0, G: 1, B: 0},  // B bottom-right
		{X: 1, Y: 1, Z: 0, R: 0, G: 0, B: 1},   // C top-right
		{X: -1, Y: 1, Z: 0, R: 1, G: 1, B: 0},  // D top-left
	}
	ibo := []uint16{3, 0, 1, 3, 1, 2} // (D,A,B), (D,B,C)

	var tris [][3]ScreenVertex
	p.ForEachGouraud(vbo, ibo, func(tri [3]ScreenVertex) {
		tris = append(tris, tri)
	})

	if len(tris) != 2 {
		t.Fatalf("got %d triangles, want 2", len(tris))
	}

	minX, minY := uint16(65535), uint16(65535)
	maxX, maxY := uint16(0), uint16(0)
	for _, tri := range tris {
		for _, v := range tri {
			if v.X < minX {
				minX = v.X
			}
			if v.X > maxX {
				maxX = v.X
			}
			if v.Y < minY {
				minY = v.Y
			}
			if v.Y > maxY {
				maxY = v.Y
			}
		}
	}

	if minX != 0 || maxX != 639 || minY != 0 || maxY != 479 {
		t.Fatalf("bounds = (%d,%d)-(%d,%d), want (0,0)-(639,479)", minX, minY, maxX, maxY)
	}
}

// TestClipAllInsidePassesThroughUnchanged is invariant 1.
func TestClipAllInsidePassesThroughUnchanged(t *testing.T) {
	p := newIdentityPipeline(640, 480)
	v0 := clipVertex{pos: [4]float32{-0.5, -0.5, 0, 1}}
	v1 := clipVertex{pos: [4]float32{0.5, -0.5, 0, 1}}
	v2 := clipVertex{pos: [4]float32{0, 0.5, 0, 1}}

	poly := p.clip(v0, v1, v2)
	if len(poly) != 3 {
		t.Fatalf("expected unchanged pass-through of 3 vertices, got %d", len(poly))
	}
	if poly[0] != v0 || poly[1] != v1 || poly[2] != v2 {
		t.Fatalf("clip mutated an all-inside triangle: %+v", poly)
	}
}

// TestClipAllOutsideSinglePlaneIsEmpty is invariant 2.
func TestClipAllOutsideSinglePlaneIsEmpty(t *testing.T) {
	p := newIdentityPipeline(640, 480)
	// All three vertices have x > w (outside the +x <= w plane).
	v0 := clipVertex{pos: [4]float32{2, 0, 0, 1}}
	v1 := clipVertex{pos: [4]float32{3, 0, 0, 1}}
	v2 := clipVertex{pos: [4]float32{2, 1, 0, 1}}

	poly := p.clip(v0, v1, v2)
	if len(poly) != 0 {
		t.Fatalf("expected empty clip result, got %d vertices", len(poly))
	}
}

// TestClipDegenerateWWeedsOutput is boundary scenario 2/3: vertices with
// w == 0 or all at the origin must not produce spurious intersections.
func TestClipDegenerateWWeedsOutput(t *testing.T) {
	p := newIdentityPipeline(640, 480)
	v0 := clipVertex{pos: [4]float32{0, 0, 0, 0}}
	v1 := clipVertex{pos: [4]float32{0, 0, 0, 0}}
	v2 := clipVertex{pos: [4]float32{0, 0, 0, 0}}

	poly := p.clip(v0, v1, v2)
	if len(poly) != 0 {
		t.Fatalf("expected clip of all-zero vertices to emit nothing, got %d", len(poly))
	}
}

// TestCullFrontFaceInvertsWithWinding is invariant 4.
func TestCullFrontFaceInvertsWithWinding(t *testing.T) {
	p := newIdentityPipeline(640, 480)
	p.SetCullMode(CullFrontFace)

	v0 := clipVertex{pos: [4]float32{-1, -1, 0, 1}}
	v1 := clipVertex{pos: [4]float32{1, -1, 0, 1}}
	v2 := clipVertex{pos: [4]float32{0, 1, 0, 1}}

	p.SetFrontFace(Clockwise)
	_, _, _, okCW := p.cull(v0, v1, v2)

	p.SetFrontFace(CounterClockwise)
	_, _, _, okCCW := p.cull(v0, v1, v2)

	if okCW == okCCW {
		t.Fatalf("toggling front face did not invert the drop decision: cw=%v ccw=%v", okCW, okCCW)
	}
}

// TestViewportOutOfBoundsPanics checks the "broken matrix" assertion from
// spec.md §4.1's error conditions.
func TestViewportOutOfBoundsPanics(t *testing.T) {
	p := newIdentityPipeline(640, 480)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for wildly out-of-range clip-space vertex")
		}
	}()
	// w very small relative to x makes x/w land far outside [-1,1].
	p.toScreen(clipVertex{pos: [4]float32{1000, 0, 0, 1}})
}

// TestMalformedIndexBufferPanics checks spec.md §4.1 stage 1.
func TestMalformedIndexBufferPanics(t *testing.T) {
	p := newIdentityPipeline(640, 480)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for index buffer length not a multiple of 3")
		}
	}()
	p.ForEachGouraud(nil, []uint16{0, 1}, func([3]ScreenVertex) {})
}
