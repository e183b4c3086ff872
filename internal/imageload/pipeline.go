package imageload

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Common errors returned by the image pipeline
var (
	// ErrDecode covers undecodable data and unsupported sample layouts
	ErrDecode = errors.New("image decode failed")
	// ErrFetch is returned when the image cannot be downloaded
	ErrFetch = errors.New("image fetch failed")
)

// SampleType is the storage type of decoded samples
type SampleType int

// Sample types a decoder can produce
const (
	SampleUint8 SampleType = iota
	SampleUint16
	SampleFloat32
	SampleInt32
)

// Samples is a decoded image before normalization, rows top-down and
// channels interleaved. Only the slice matching Type is set.
type Samples struct {
	Width    int
	Height   int
	Channels int
	Type     SampleType
	U8       []uint8
	U16      []uint16
	F32      []float32
	I32      []int32
}

// Raster is a float RGBA image with samples in [0,1]
type Raster struct {
	Width  int
	Height int
	Pix    []float32
}

// Process runs the whole decode pipeline on encoded image bytes. The result
// is cropped to its content plus margin and stored bottom-up.
func Process(data []byte, margin int) (Raster, error) {
	samples, err := Decode(data)
	if err != nil {
		return Raster{}, err
	}
	values, err := Normalize(samples)
	if err != nil {
		return Raster{}, err
	}
	raster, err := ExpandRGBA(values, samples.Width, samples.Height, samples.Channels)
	if err != nil {
		return Raster{}, err
	}
	return FlipVertical(CropBorders(raster, margin)), nil
}

// Decode decodes any format imaging understands, applying EXIF orientation
func Decode(data []byte) (Samples, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Samples{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return samplesOf(img), nil
}

func samplesOf(img image.Image) Samples {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	s := Samples{Width: w, Height: h}

	switch m := img.(type) {
	case *image.Gray:
		s.Channels, s.Type = 1, SampleUint8
		s.U8 = make([]uint8, 0, w*h)
		for y := 0; y < h; y++ {
			off := m.PixOffset(b.Min.X, b.Min.Y+y)
			s.U8 = append(s.U8, m.Pix[off:off+w]...)
		}
	case *image.Gray16:
		s.Channels, s.Type = 1, SampleUint16
		s.U16 = make([]uint16, 0, w*h)
		for y := 0; y < h; y++ {
			off := m.PixOffset(b.Min.X, b.Min.Y+y)
			for x := 0; x < w; x++ {
				s.U16 = append(s.U16, binary.BigEndian.Uint16(m.Pix[off+2*x:]))
			}
		}
	case *image.NRGBA64:
		s.Channels, s.Type = 4, SampleUint16
		s.U16 = make([]uint16, 0, w*h*4)
		for y := 0; y < h; y++ {
			off := m.PixOffset(b.Min.X, b.Min.Y+y)
			for i := 0; i < w*4; i++ {
				s.U16 = append(s.U16, binary.BigEndian.Uint16(m.Pix[off+2*i:]))
			}
		}
	case *image.YCbCr:
		s.Channels, s.Type = 3, SampleUint8
		s.U8 = make([]uint8, 0, w*h*3)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.RGBAModel.Convert(m.At(x, y)).(color.RGBA)
				s.U8 = append(s.U8, c.R, c.G, c.B)
			}
		}
	default:
		n := imaging.Clone(img)
		s.Channels, s.Type = 4, SampleUint8
		s.U8 = make([]uint8, 0, w*h*4)
		for y := 0; y < h; y++ {
			off := y * n.Stride
			s.U8 = append(s.U8, n.Pix[off:off+w*4]...)
		}
	}
	return s
}

// Normalize converts samples to float32 in [0,1]: 8-bit divides by 255,
// 16-bit by 65535 and floats are clamped
func Normalize(s Samples) ([]float32, error) {
	switch s.Type {
	case SampleUint8:
		out := make([]float32, len(s.U8))
		for i, v := range s.U8 {
			out[i] = float32(v) / 255
		}
		return out, nil
	case SampleUint16:
		out := make([]float32, len(s.U16))
		for i, v := range s.U16 {
			out[i] = float32(v) / 65535
		}
		return out, nil
	case SampleFloat32:
		out := make([]float32, len(s.F32))
		for i, v := range s.F32 {
			out[i] = clamp01(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported sample type %d", ErrDecode, s.Type)
	}
}

func clamp01(v float32) float32 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ExpandRGBA turns 1 (gray), 3 (RGB) or 4 (RGBA) channel data into RGBA.
// Added alpha is opaque.
func ExpandRGBA(values []float32, width, height, channels int) (Raster, error) {
	n := width * height
	if len(values) != n*channels {
		return Raster{}, fmt.Errorf("%w: %d samples for %dx%dx%d", ErrDecode, len(values), width, height, channels)
	}

	r := Raster{Width: width, Height: height}
	switch channels {
	case 4:
		r.Pix = values
	case 3:
		r.Pix = make([]float32, n*4)
		for i := 0; i < n; i++ {
			copy(r.Pix[i*4:i*4+3], values[i*3:i*3+3])
			r.Pix[i*4+3] = 1
		}
	case 1:
		r.Pix = make([]float32, n*4)
		for i, v := range values {
			r.Pix[i*4], r.Pix[i*4+1], r.Pix[i*4+2], r.Pix[i*4+3] = v, v, v, 1
		}
	default:
		return Raster{}, fmt.Errorf("%w: unsupported channel count %d", ErrDecode, channels)
	}
	return r, nil
}

// empty reports whether a pixel is pure white or fully transparent
func empty(px []float32) bool {
	return px[3] == 0 || (px[0] == 1 && px[1] == 1 && px[2] == 1)
}

// CropBorders removes rows and columns that are entirely white or
// transparent, keeping margin pixels around the content. A raster with no
// content is returned unchanged.
func CropBorders(r Raster, margin int) Raster {
	if margin < 0 {
		margin = 0
	}

	minX, minY, maxX, maxY := r.Width, r.Height, -1, -1
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			i := (y*r.Width + x) * 4
			if empty(r.Pix[i : i+4]) {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}
	if maxX < 0 {
		return r
	}

	minX, minY = max(0, minX-margin), max(0, minY-margin)
	maxX, maxY = min(r.Width-1, maxX+margin), min(r.Height-1, maxY+margin)
	if minX == 0 && minY == 0 && maxX == r.Width-1 && maxY == r.Height-1 {
		return r
	}

	out := Raster{Width: maxX - minX + 1, Height: maxY - minY + 1}
	out.Pix = make([]float32, 0, out.Width*out.Height*4)
	for y := minY; y <= maxY; y++ {
		start := (y*r.Width + minX) * 4
		out.Pix = append(out.Pix, r.Pix[start:start+out.Width*4]...)
	}
	return out
}

// FlipVertical reverses the row order
func FlipVertical(r Raster) Raster {
	row := r.Width * 4
	out := Raster{Width: r.Width, Height: r.Height, Pix: make([]float32, len(r.Pix))}
	for y := 0; y < r.Height; y++ {
		copy(out.Pix[(r.Height-1-y)*row:(r.Height-y)*row], r.Pix[y*row:(y+1)*row])
	}
	return out
}
