package soft

import (
	"errors"
	"github.com/Yeicor/sharegl/internal/gles"
	"math"
)

// storage is 4-byte-per-pixel image memory with rows bottom-up: row 0 is window y 0 or texture
// coordinate t 0. It is either owned or aliases a gles.Surface.
type storage struct {
	w, h   int
	bgra   bool
	pix    []byte
	stride int
	surf   gles.Surface
}

func newStorage(w, h int, bgra bool) storage {
	return storage{w: w, h: h, bgra: bgra, pix: make([]byte, w*h*4), stride: w * 4}
}

func (s *storage) valid() bool { return s.w > 0 && s.h > 0 }

var errShortSurface = errors.New("surface memory is smaller than its dimensions")

// bytes returns the pixel memory. Surfaces must be locked by the caller.
func (s *storage) bytes() ([]byte, error) {
	if s.surf == nil {
		return s.pix, nil
	}
	b := s.surf.Bytes()
	if len(b) < s.stride*(s.h-1)+s.w*4 {
		return nil, errShortSurface
	}
	return b, nil
}

// channel offsets of red, green, blue and alpha within a pixel
func (s *storage) order() [4]int {
	if s.bgra {
		return [4]int{2, 1, 0, 3}
	}
	return [4]int{0, 1, 2, 3}
}

type textureObject struct {
	target               gles.Enum
	img                  storage
	wrapS, wrapT         gles.Enum
	minFilter, magFilter gles.Enum
}

func newTextureObject() *textureObject {
	// Mipmaps are not supported, so the minification default is LINEAR instead of
	// NEAREST_MIPMAP_LINEAR.
	return &textureObject{wrapS: gles.Repeat, wrapT: gles.Repeat, minFilter: gles.Linear, magFilter: gles.Linear}
}

// sampler is a texture snapshot taken at draw time, read concurrently by fragment invocations.
type sampler struct {
	pix          []byte
	stride, w, h int
	order        [4]int
	rect         bool
	linear       bool
	wrapS, wrapT gles.Enum
}

func wrap(i, n int, mode gles.Enum) int {
	if mode == gles.Repeat {
		i %= n
		if i < 0 {
			i += n
		}
		return i
	}
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (s *sampler) texel(x, y int) vec4 {
	x, y = wrap(x, s.w, s.wrapS), wrap(y, s.h, s.wrapT)
	o := y*s.stride + x*4
	return vec4{
		float64(s.pix[o+s.order[0]]) / 255,
		float64(s.pix[o+s.order[1]]) / 255,
		float64(s.pix[o+s.order[2]]) / 255,
		float64(s.pix[o+s.order[3]]) / 255,
	}
}

// at samples at texel-space coordinates (u, v), where texel centers are at half integers.
func (s *sampler) at(u, v float64) vec4 {
	if !s.linear {
		return s.texel(int(math.Floor(u)), int(math.Floor(v)))
	}
	u, v = u-0.5, v-0.5
	x0, y0 := math.Floor(u), math.Floor(v)
	fx, fy := u-x0, v-y0
	ix, iy := int(x0), int(y0)
	t00, t10 := s.texel(ix, iy), s.texel(ix+1, iy)
	t01, t11 := s.texel(ix, iy+1), s.texel(ix+1, iy+1)
	var r vec4
	for i := range r {
		top := t00[i]*(1-fx) + t10[i]*fx
		bottom := t01[i]*(1-fx) + t11[i]*fx
		r[i] = top*(1-fy) + bottom*fy
	}
	return r
}

var missingTexel = vec4{0, 0, 0, 1}

// sampleFunc returns the texture lookup used by shader evaluation. Rectangle samplers take texel
// coordinates, 2D samplers normalized ones. Incomplete or mismatched units read opaque black.
func sampleFunc(units []*sampler) func(unit int, rect bool, s, t float64) vec4 {
	return func(unit int, rect bool, s, t float64) vec4 {
		if unit < 0 || unit >= len(units) {
			return missingTexel
		}
		smp := units[unit]
		if smp == nil || smp.rect != rect {
			return missingTexel
		}
		if !rect {
			s, t = s*float64(smp.w), t*float64(smp.h)
		}
		return smp.at(s, t)
	}
}
