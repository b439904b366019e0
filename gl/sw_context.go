// sw_context.go - software rasterizer fallback, used when no FPGA is present
//
// Grounded on the teacher's edge-function barycentric rasterizer
// (voodoo_software.go's rasterizeTriangle/edgeFunction) and on the
// original sw.rs: 24-bit fixed-point area reciprocal, row/column edge
// increments, z > depth[pos] keep-larger-wins depth test, BGR write order.

package gl

// SWContext rasterizes directly into an in-memory frame buffer and depth
// buffer; no command stream, no DMA, no HAL.
type SWContext struct {
	common

	frame []byte   // BGR, width*height*3
	depth []uint16 // width*height
}

// NewSWContext constructs a software-fallback context targeting a frame
// of the given size.
func NewSWContext(width, height int) *SWContext {
	return &SWContext{
		common: newCommon(width, height),
		frame:  make([]byte, width*height*3),
		depth:  make([]uint16, width*height),
	}
}

func (c *SWContext) BeginFrame() {
	for i := range c.depth {
		c.depth[i] = 0
	}
}

// EndFrame has nothing to synchronize against in software: there is no
// command stream or display controller. draw is accepted for interface
// parity with HWContext but otherwise unused.
func (c *SWContext) EndFrame(draw bool) {
	_ = draw
}

func (c *SWContext) DrawGouraud(vbo []GouraudVertex, ibo []uint16) {
	c.pipe.ForEachGouraud(vbo, ibo, func(tri [3]ScreenVertex) {
		c.rasterize(tri, nil)
	})
}

func (c *SWContext) DrawTexture(tex *TextureBuffer, vbo []TextureVertex, ibo []uint16) {
	c.pipe.ForEachTexture(vbo, ibo, func(tri [3]ScreenVertex) {
		c.rasterize(tri, tex)
	})
}

// Frame returns the current BGR frame buffer contents.
func (c *SWContext) Frame() []byte { return c.frame }

func (c *SWContext) Close() error { return nil }

// orient2d is the edge function: twice the signed area of (a,b,c).
func orient2d(ax, ay, bx, by, cx, cy int32) int32 {
	return (bx-ax)*(cy-ay) - (by-ay)*(cx-ax)
}

// rasterize implements spec.md §4.4's edge-function traversal with 24-bit
// fixed-point barycentric weights. tex is nil for Gouraud draws.
func (c *SWContext) rasterize(tri [3]ScreenVertex, tex *TextureBuffer) {
	v0, v1, v2 := tri[0], tri[1], tri[2]

	x0, y0 := int32(v0.X), int32(v0.Y)
	x1, y1 := int32(v1.X), int32(v1.Y)
	x2, y2 := int32(v2.X), int32(v2.Y)

	area := orient2d(x0, y0, x1, y1, x2, y2)
	if area <= 0 {
		return
	}

	areaRecip := int64(0xFFFFFF) / int64(area)

	a01 := y0 - y1
	a12 := y1 - y2
	a20 := y2 - y0
	b01 := x1 - x0
	b12 := x2 - x1
	b20 := x0 - x2

	minX := min3(x0, x1, x2)
	maxX := max3(x0, x1, x2)
	minY := min3(y0, y1, y2)
	maxY := max3(y0, y1, y2)

	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	if maxX >= int32(c.Width()) {
		maxX = int32(c.Width()) - 1
	}
	if maxY >= int32(c.Height()) {
		maxY = int32(c.Height()) - 1
	}

	w0Row := orient2d(x1, y1, x2, y2, minX, minY)
	w1Row := orient2d(x2, y2, x0, y0, minX, minY)
	w2Row := orient2d(x0, y0, x1, y1, minX, minY)

	width := c.Width()

	for y := minY; y <= maxY; y++ {
		w0, w1, w2 := w0Row, w1Row, w2Row

		for x := minX; x <= maxX; x++ {
			if w0 >= 0 && w1 >= 0 && w2 >= 0 {
				c.shadePixel(int(x), int(y), width, w0, w1, w2, areaRecip, v0, v1, v2, tex)
			}
			w0 += a12
			w1 += a20
			w2 += a01
		}

		w0Row += b12
		w1Row += b20
		w2Row += b01
	}
}

func (c *SWContext) shadePixel(x, y, width int, w0, w1, w2 int32, areaRecip int64, v0, v1, v2 ScreenVertex, tex *TextureBuffer) {
	bw0 := int64(w0) * areaRecip
	bw1 := int64(w1) * areaRecip
	bw2 := int64(w2) * areaRecip

	z := lerpWeighted16(uint32(v0.Z), uint32(v1.Z), uint32(v2.Z), bw0, bw1, bw2)

	pos := y*width + x
	if uint16(z) <= c.depth[pos] {
		return
	}
	c.depth[pos] = uint16(z)

	var r, g, b byte
	if tex != nil {
		a0 := lerpWeighted8(v0.A0, v1.A0, v2.A0, bw0, bw1, bw2)
		a1 := lerpWeighted8(v0.A1, v1.A1, v2.A1, bw0, bw1, bw2)
		r, g, b = sampleTexture(tex, a0, a1)
	} else {
		r = lerpWeighted8(v0.A0, v1.A0, v2.A0, bw0, bw1, bw2)
		g = lerpWeighted8(v0.A1, v1.A1, v2.A1, bw0, bw1, bw2)
		b = lerpWeighted8(v0.A2, v1.A2, v2.A2, bw0, bw1, bw2)
	}

	off := pos * 3
	c.frame[off] = b
	c.frame[off+1] = g
	c.frame[off+2] = r
}

// sampleTexture implements spec.md §4.4's textured sampling: the color
// map receives (s, t, _) in the u8 interpolants and samples at row
// (s>>1), column (t>>1) — i.e. ((s>>1)*128 + (t>>1))*3 in row-major terms.
func sampleTexture(tex *TextureBuffer, s, t uint8) (r, g, b byte) {
	return tex.At(int(t>>1), int(s>>1))
}

// lerpWeighted16 interpolates a 16-bit quantity with 24-bit fixed-point
// barycentric weights summing to ~2^24, per spec.md §4.4 step 6.
func lerpWeighted16(a0, a1, a2 uint32, w0, w1, w2 int64) uint32 {
	sum := int64(a0)*w0 + int64(a1)*w1 + int64(a2)*w2
	return uint32((sum + (1 << 23)) >> 24)
}

func lerpWeighted8(a0, a1, a2 uint8, w0, w1, w2 int64) uint8 {
	sum := int64(a0)*w0 + int64(a1)*w1 + int64(a2)*w2
	return uint8((sum + (1 << 23)) >> 24)
}

func min3(a, b, c int32) int32 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func max3(a, b, c int32) int32 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
