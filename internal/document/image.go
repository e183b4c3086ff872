package document

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Image is a float RGBA raster. Pixels holds Width*Height*4 samples in
// [0,1], rows stored bottom-up.
type Image struct {
	Name   string
	Width  int
	Height int
	Pixels []float32
	Users  int
}

// HasImage reports whether an image named name exists
func (s *Scene) HasImage(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.images[name]
	return ok
}

// Image returns a copy of the named image's metadata and pixels
func (s *Scene) Image(name string) (Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	img, ok := s.images[name]
	if !ok {
		return Image{}, fmt.Errorf("%w: %s", ErrImageNotFound, name)
	}
	cp := *img
	cp.Pixels = append([]float32(nil), img.Pixels...)
	return cp, nil
}

// ImageNames lists every image resource
func (s *Scene) ImageNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.images))
	for name := range s.images {
		names = append(names, name)
	}
	return names
}

// NewImage creates an empty image resource with no users
func (s *Scene) NewImage(name string, width, height int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidPixels, width, height)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.images[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrImageExists, name)
	}
	img := &Image{
		Name:   name,
		Width:  width,
		Height: height,
		Pixels: make([]float32, width*height*4),
	}
	s.images[name] = img
	return img, nil
}

// SetPixels replaces the pixel buffer of an existing image
func (s *Scene) SetPixels(name string, pixels []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, ok := s.images[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrImageNotFound, name)
	}
	if len(pixels) != img.Width*img.Height*4 {
		return fmt.Errorf("%w: got %d samples for %dx%d", ErrInvalidPixels, len(pixels), img.Width, img.Height)
	}
	img.Pixels = pixels
	return nil
}

// RetainImage adds a user to the named image
func (s *Scene) RetainImage(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, ok := s.images[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrImageNotFound, name)
	}
	img.Users++
	return nil
}

// RemoveImage deletes the named image regardless of its users
func (s *Scene) RemoveImage(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.images[name]; !ok {
		return fmt.Errorf("%w: %s", ErrImageNotFound, name)
	}
	delete(s.images, name)
	s.logger.Debug("image removed", "image", name)
	return nil
}

// RemoveImageIfUnused deletes the named image only when nothing uses it.
// It reports whether the image was removed.
func (s *Scene) RemoveImageIfUnused(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, ok := s.images[name]
	if !ok || img.Users > 0 {
		return false
	}
	delete(s.images, name)
	return true
}

// SaveImage writes the named image to path. The format follows the file
// extension.
func (s *Scene) SaveImage(name, path string) error {
	img, err := s.Image(name)
	if err != nil {
		return err
	}
	if err := imaging.Save(img.toNRGBA(), path); err != nil {
		return fmt.Errorf("failed to save image %s: %w", name, err)
	}
	return nil
}

// toNRGBA converts back to a top-down 8-bit raster
func (img Image) toNRGBA() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		src := (img.Height - 1 - y) * img.Width * 4
		for x := 0; x < img.Width; x++ {
			i := src + x*4
			out.SetNRGBA(x, y, color.NRGBA{
				R: to8(img.Pixels[i]),
				G: to8(img.Pixels[i+1]),
				B: to8(img.Pixels[i+2]),
				A: to8(img.Pixels[i+3]),
			})
		}
	}
	return out
}

func to8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(float64(v) * 255))
}
