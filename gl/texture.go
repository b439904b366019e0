// texture.go - texture buffer storage and the four-slot residency table
//
// Grounded on spec.md §3/§4.3 and umd/src/gl/texture_buffer.rs's quadrant
// mapping (referenced indirectly via hw.rs's pixel_index quadrant logic).

package gl

const (
	texSize   = 128
	texSlots  = 4
	quadrant  = 64
	quadBytes = quadrant * quadrant * 3
)

// TextureBuffer is a 128x128 RGB texture stored in quadrant-interleaved
// order: four 64x64 quadrants concatenated, row-major within each.
type TextureBuffer struct {
	id     uint64
	pixels [texSize * texSize * 3]byte
	dirty  bool
}

var nextTextureID uint64 = 1

// NewTextureBuffer allocates a texture buffer with a fresh monotonically
// increasing logical id (0 is reserved to mean "slot empty").
func NewTextureBuffer() *TextureBuffer {
	id := nextTextureID
	nextTextureID++
	return &TextureBuffer{id: id}
}

// ID returns the texture's logical id.
func (t *TextureBuffer) ID() uint64 { return t.id }

// pixelIndex maps an (x,y) pixel coordinate to its byte offset within the
// quadrant-interleaved storage: quadrant (x>>6, y>>6) maps to index
// {(0,0)=0, (1,0)=1, (0,1)=2, (1,1)=3}.
func pixelIndex(x, y int) int {
	qx, qy := x>>6, y>>6
	quad := qx + qy*2
	return (quad*4096 + (y&63)*64 + (x&63)) * 3
}

// Load replaces the texture's contents from a 128*128*3-byte row-major
// RGB buffer, re-encoding it into quadrant-interleaved storage, and marks
// the texture dirty so the next upload re-synchronizes hardware residency.
func (t *TextureBuffer) Load(rgb []byte) {
	if len(rgb) != texSize*texSize*3 {
		panic("gl: texture load: expected 128*128*3 bytes")
	}
	for y := 0; y < texSize; y++ {
		for x := 0; x < texSize; x++ {
			src := (y*texSize + x) * 3
			dst := pixelIndex(x, y)
			copy(t.pixels[dst:dst+3], rgb[src:src+3])
		}
	}
	t.dirty = true
}

// At returns the RGB bytes at pixel (x, y) from quadrant-interleaved storage.
func (t *TextureBuffer) At(x, y int) (r, g, b byte) {
	off := pixelIndex(x, y)
	return t.pixels[off], t.pixels[off+1], t.pixels[off+2]
}

// quadrantRanges are the four tile ranges uploaded per spec.md §4.3:
// (0,63,0,63), (0,63,64,127), (64,127,0,63), (64,127,64,127).
var quadrantRanges = [texSlots][4]uint8{
	{0, 63, 0, 63},
	{0, 63, 64, 127},
	{64, 127, 0, 63},
	{64, 127, 64, 127},
}

// quadrantPayload returns the raw bytes for quadrant index q (0..3) in the
// exact layout the storage already keeps them in, ready for LoadTexture.
func (t *TextureBuffer) quadrantPayload(q int) []byte {
	return t.pixels[q*quadBytes : (q+1)*quadBytes]
}

// residencyTable is the hardware's four-slot texture residency tracker:
// loaded_texture_buffers[0..4] holds a monotonic logical id (0 = empty),
// replaced round-robin via next_buffer_replace.
type residencyTable struct {
	loaded   [texSlots]uint64
	nextFree int
}

// slotFor returns the slot index holding id, or -1 if not resident.
func (r *residencyTable) slotFor(id uint64) int {
	for i, v := range r.loaded {
		if v == id {
			return i
		}
	}
	return -1
}

// assign evicts the round-robin slot for a new id and returns it.
func (r *residencyTable) assign(id uint64) int {
	slot := r.nextFree
	r.loaded[slot] = id
	r.nextFree = (r.nextFree + 1) % texSlots
	return slot
}
