package gl

import "testing"

func TestScreenVertexPackRoundTrip(t *testing.T) {
	cases := []ScreenVertex{
		{X: 0, Y: 0, Z: 0, A0: 0, A1: 0, A2: 0},
		{X: 2047, Y: 2047, Z: 65535, A0: 255, A1: 255, A2: 255},
		{X: 639, Y: 479, Z: 12345, A0: 10, A1: 20, A2: 30},
	}

	for _, want := range cases {
		t.Run("", func(t *testing.T) {
			packed := want.Pack()
			got := UnpackScreenVertex(packed)
			if got != want {
				t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
			}

			lo, hi := want.PackWords()
			got2 := UnpackScreenVertexWords(lo, hi)
			if got2 != want {
				t.Fatalf("word round trip mismatch: got %+v, want %+v", got2, want)
			}
		})
	}
}

func TestScreenVertexPackFieldLayout(t *testing.T) {
	v := ScreenVertex{X: 1, Y: 0, Z: 0, A0: 0, A1: 0, A2: 0}
	if v.Pack() != 1 {
		t.Fatalf("X bit 0 should land at bit 0, got %#x", v.Pack())
	}

	v = ScreenVertex{X: 0, Y: 1, Z: 0}
	if v.Pack() != 1<<11 {
		t.Fatalf("Y bit 0 should land at bit 11, got %#x", v.Pack())
	}

	v = ScreenVertex{X: 0, Y: 0, Z: 1}
	if v.Pack() != 1<<22 {
		t.Fatalf("Z bit 0 should land at bit 22, got %#x", v.Pack())
	}

	v = ScreenVertex{A0: 1}
	if v.Pack() != 1<<38 {
		t.Fatalf("A0 bit 0 should land at bit 38, got %#x", v.Pack())
	}

	v = ScreenVertex{A1: 1}
	if v.Pack() != 1<<46 {
		t.Fatalf("A1 bit 0 should land at bit 46, got %#x", v.Pack())
	}

	v = ScreenVertex{A2: 1}
	if v.Pack() != 1<<54 {
		t.Fatalf("A2 bit 0 should land at bit 54, got %#x", v.Pack())
	}
}
