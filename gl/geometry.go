// geometry.go - model/view/projection transform, clip, cull, viewport map
//
// Grounded on umd/src/gl/common.rs's GlCommon (cached MVP, cull()) and the
// clip-pipeline description, synthesized per SPEC_FULL.md §9 to the
// "most-evolved" variant: homogeneous six-plane Sutherland-Hodgman clip,
// fan re-triangulation. Expressed as a push-based visitor per spec.md
// §9's own guidance ("a language without zero-cost iterators should use
// a push-based visitor to preserve the property") since Go has no lazy
// generators.

package gl

import "github.com/go-gl/mathgl/mgl32"

const clipEpsilon = 0.001

// Pipeline holds the cached model/view/projection state and the clipper's
// reusable scratch buffers, so ForEachGouraud/ForEachTexture allocate
// nothing per draw call beyond what the sink itself retains.
type Pipeline struct {
	view, proj, model mgl32.Mat4
	mvp               mgl32.Mat4
	dirty             bool

	cullMode  CullMode
	frontFace FrontFace
	texturing bool

	width, height int

	scratchA []clipVertex
	scratchB []clipVertex
}

// NewPipeline constructs a pipeline targeting a viewport of the given size.
func NewPipeline(width, height int) *Pipeline {
	return &Pipeline{
		view:      mgl32.Ident4(),
		proj:      mgl32.Ident4(),
		model:     mgl32.Ident4(),
		mvp:       mgl32.Ident4(),
		cullMode:  CullBackFace,
		frontFace: Clockwise,
		width:     width,
		height:    height,
	}
}

func (p *Pipeline) SetViewMatrix(m mgl32.Mat4) {
	p.view = m
	p.dirty = true
}

func (p *Pipeline) SetProjectionMatrix(m mgl32.Mat4) {
	p.proj = m
	p.dirty = true
}

func (p *Pipeline) SetModelMatrix(m mgl32.Mat4) {
	p.model = m
	p.dirty = true
}

func (p *Pipeline) SetCullMode(m CullMode) { p.cullMode = m }

func (p *Pipeline) SetFrontFace(f FrontFace) { p.frontFace = f }

func (p *Pipeline) recomputeMVP() {
	if p.dirty {
		p.mvp = p.proj.Mul4(p.view).Mul4(p.model)
		p.dirty = false
	}
}

// ForEachGouraud streams every screen-space triangle surviving the
// pipeline for a Gouraud draw call: indices must come in multiples of 3.
func (p *Pipeline) ForEachGouraud(vbo []GouraudVertex, ibo []uint16, sink func(tri [3]ScreenVertex)) {
	if len(ibo)%3 != 0 {
		panic("gl: index buffer length must be a multiple of 3")
	}
	p.recomputeMVP()
	p.texturing = false

	for i := 0; i+2 < len(ibo); i += 3 {
		v0 := gouraudClipVertex(vbo[ibo[i]], p.mvp)
		v1 := gouraudClipVertex(vbo[ibo[i+1]], p.mvp)
		v2 := gouraudClipVertex(vbo[ibo[i+2]], p.mvp)
		p.processTriangle(v0, v1, v2, sink)
	}
}

// ForEachTexture streams every screen-space triangle surviving the
// pipeline for a textured draw call.
func (p *Pipeline) ForEachTexture(vbo []TextureVertex, ibo []uint16, sink func(tri [3]ScreenVertex)) {
	if len(ibo)%3 != 0 {
		panic("gl: index buffer length must be a multiple of 3")
	}
	p.recomputeMVP()
	p.texturing = true

	for i := 0; i+2 < len(ibo); i += 3 {
		v0 := textureClipVertex(vbo[ibo[i]], p.mvp)
		v1 := textureClipVertex(vbo[ibo[i+1]], p.mvp)
		v2 := textureClipVertex(vbo[ibo[i+2]], p.mvp)
		p.processTriangle(v0, v1, v2, sink)
	}
}

func gouraudClipVertex(v GouraudVertex, mvp mgl32.Mat4) clipVertex {
	pos := mvp.Mul4x1(mgl32.Vec4{v.X, v.Y, v.Z, 1})
	return clipVertex{
		pos:  [4]float32{pos[0], pos[1], pos[2], pos[3]},
		attr: [3]float32{v.R, v.G, v.B},
	}
}

func textureClipVertex(v TextureVertex, mvp mgl32.Mat4) clipVertex {
	pos := mvp.Mul4x1(mgl32.Vec4{v.X, v.Y, v.Z, 1})
	return clipVertex{
		pos:  [4]float32{pos[0], pos[1], pos[2], pos[3]},
		attr: [3]float32{v.S, v.T, 0},
	}
}

// processTriangle runs cull, clip and viewport mapping for one assembled
// triangle and emits zero or more screen-space triangles to sink.
func (p *Pipeline) processTriangle(v0, v1, v2 clipVertex, sink func([3]ScreenVertex)) {
	v0, v1, v2, ok := p.cull(v0, v1, v2)
	if !ok {
		return
	}

	poly := p.clip(v0, v1, v2)
	if len(poly) < 3 {
		return
	}

	for i := 2; i < len(poly); i++ {
		a := p.toScreen(poly[0])
		b := p.toScreen(poly[i-1])
		c := p.toScreen(poly[i])
		sink([3]ScreenVertex{a, b, c})
	}
}

// cull implements spec.md §4.1 stage 3: the hardware's own back-face cull
// discards counter-clockwise-in-screen triangles, so software culling
// must pre-swap to that convention before applying CullMode.
func (p *Pipeline) cull(v0, v1, v2 clipVertex) (a, b, c clipVertex, ok bool) {
	if p.frontFace == CounterClockwise {
		v1, v2 = v2, v1
	}

	orient := signedOrient(v0, v1, v2)

	switch p.cullMode {
	case CullBackFace:
		return v0, v1, v2, true
	case CullNone:
		if orient > 0 {
			v1, v2 = v2, v1
		}
		return v0, v1, v2, true
	case CullFrontFace:
		if orient < 0 {
			return clipVertex{}, clipVertex{}, clipVertex{}, false
		}
		v1, v2 = v2, v1
		return v0, v1, v2, true
	default:
		return v0, v1, v2, true
	}
}

func signedOrient(a, b, c clipVertex) float32 {
	ax, ay := a.pos[0]/a.pos[3], a.pos[1]/a.pos[3]
	bx, by := b.pos[0]/b.pos[3], b.pos[1]/b.pos[3]
	cx, cy := c.pos[0]/c.pos[3], c.pos[1]/c.pos[3]
	return (bx-ax)*(cy-ay) - (by-ay)*(cx-ax)
}

// clipPlane identifies one of the six frustum half-spaces as (component
// index, sign): the half-space is sign*pos[component] <= pos[3].
type clipPlane struct {
	component int
	sign      float32
}

var clipPlanes = [6]clipPlane{
	{0, 1}, {0, -1},
	{1, 1}, {1, -1},
	{2, 1}, {2, -1},
}

func outcode(v clipVertex) uint8 {
	var code uint8
	for i, pl := range clipPlanes {
		if pl.sign*v.pos[pl.component] > v.pos[3] {
			code |= 1 << uint(i)
		}
	}
	// With w <= 0 only the homogeneous origin passes all six tests, and it
	// is not a point; count it as outside every plane.
	if code == 0 && v.pos[3] <= 0 {
		code = 1<<len(clipPlanes) - 1
	}
	return code
}

// clip runs the six-plane homogeneous Sutherland-Hodgman clip, returning
// the (possibly empty) output polygon. Uses the pipeline's two ping-pong
// scratch buffers so no allocation occurs per draw call in steady state;
// the returned slice is one of those buffers and is only valid until the
// next call.
func (p *Pipeline) clip(v0, v1, v2 clipVertex) []clipVertex {
	c0, c1, c2 := outcode(v0), outcode(v1), outcode(v2)

	if c0&c1&c2 != 0 {
		return nil
	}
	if c0|c1|c2 == 0 {
		p.scratchA = append(p.scratchA[:0], v0, v1, v2)
		return p.scratchA
	}

	in := p.scratchA[:0]
	in = append(in, v0, v1, v2)
	out := p.scratchB[:0]

	for _, pl := range clipPlanes {
		if len(in) == 0 {
			break
		}
		out = out[:0]
		prev := in[len(in)-1]
		prevInside := pl.sign*prev.pos[pl.component] <= prev.pos[3]

		for _, curr := range in {
			currInside := pl.sign*curr.pos[pl.component] <= curr.pos[3]

			if currInside {
				if !prevInside {
					if v, ok := intersect(prev, curr, pl); ok {
						out = append(out, v)
					}
				}
				out = append(out, curr)
			} else if prevInside {
				if v, ok := intersect(prev, curr, pl); ok {
					out = append(out, v)
				}
			}

			prev = curr
			prevInside = currInside
		}

		in, out = out, in
	}

	p.scratchA = in[:0]
	p.scratchB = out[:0]

	if len(in) < 3 {
		return nil
	}
	return in
}

// intersect computes the edge/plane intersection parameter per spec.md
// §4.1 stage 4: t = (-p0 + w0) / (-p0 + p1 + w0 - w1), skipping emission
// when the denominator is degenerate.
func intersect(prev, curr clipVertex, pl clipPlane) (clipVertex, bool) {
	p0 := pl.sign * prev.pos[pl.component]
	p1 := pl.sign * curr.pos[pl.component]
	w0 := prev.pos[3]
	w1 := curr.pos[3]

	denom := -p0 + p1 + w0 - w1
	if denom <= clipEpsilon && denom >= -clipEpsilon {
		return clipVertex{}, false
	}
	t := (-p0 + w0) / denom
	return lerpClipVertex(prev, curr, t), true
}

// toScreen implements spec.md §4.1 stages 5-6: perspective divide,
// viewport map and per-attribute screen encoding, with bounds assertions
// matching the reference driver's "broken matrix" ProtocolViolation.
func (p *Pipeline) toScreen(v clipVertex) ScreenVertex {
	w := v.pos[3]
	x := v.pos[0] / w
	y := v.pos[1] / w
	z := v.pos[2] / w

	sx := (x*0.5 + 0.5) * float32(p.width-1)
	sy := (-y*0.5 + 0.5) * float32(p.height-1)
	sz := (-z*0.5 + 0.5) * 65535

	ix := uint32(sx)
	iy := uint32(sy)
	iz := uint32(sz)

	if ix >= uint32(p.width) || iy >= uint32(p.height) || iz >= 65536 {
		panic("gl: screen vertex out of viewport bounds after transform")
	}

	var a0, a1, a2 uint8
	if p.texturing {
		a0, a1, a2 = textureAttrBytes(v.attr[0], v.attr[1])
	} else {
		a0, a1, a2 = attrByte(v.attr[0]), attrByte(v.attr[1]), attrByte(v.attr[2])
	}

	return ScreenVertex{
		X:  uint16(ix),
		Y:  uint16(iy),
		Z:  uint16(iz),
		A0: a0,
		A1: a1,
		A2: a2,
	}
}

func attrByte(f float32) uint8 {
	return uint8(f * 255)
}

// textureAttrBytes maps (s, t) into the A0/A1 encoding the hardware reads
// as S/T per spec.md §4.1 stage 6: (255*(1-s), 255*t, 0).
func textureAttrBytes(s, t float32) (a0, a1, a2 uint8) {
	return attrByte(1 - s), attrByte(t), 0
}
