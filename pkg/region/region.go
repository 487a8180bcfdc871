// Package region locates the calibration panel within a panel photo. The
// result is always an axis-aligned rectangle in image coordinates.
package region

import(
	"context"
	"fmt"
	"image"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/abworrall/rededge-refl/pkg/calerr"
	"github.com/abworrall/rededge-refl/pkg/emath"
)

// A Selector picks the panel rectangle for one image. Implementations
// may block (waiting on an operator) and must honour ctx.
type Selector interface {
	Select(ctx context.Context, filename string, img emath.FloatGrid) (image.Rectangle, error)
}

// Fixed returns the same rectangle for every image, unless the file's base
// name has its own entry in PerFile.
type Fixed struct {
	Rect    image.Rectangle
	PerFile map[string]image.Rectangle
}

func (f Fixed)String() string {
	return fmt.Sprintf("Fixed%s (+%d per-file)", f.Rect, len(f.PerFile))
}

func (f Fixed)Select(ctx context.Context, filename string, img emath.FloatGrid) (image.Rectangle, error) {
	if err := ctx.Err(); err != nil {
		return image.Rectangle{}, errors.Wrapf(calerr.ErrAborted, "%s: %v", filename, err)
	}
	r := f.Rect
	if override, exists := f.PerFile[filepath.Base(filename)]; exists {
		r = override
	}
	return Clip(r, img), nil
}

// Clip canonicalises r and intersects it with the image bounds. The result
// may be empty.
func Clip(r image.Rectangle, img emath.FloatGrid) image.Rectangle {
	return r.Canon().Intersect(img.Bounds())
}

func growRectangle(r image.Rectangle, p image.Point) image.Rectangle {
	if p.X < r.Min.X {
		r.Min.X = p.X
	} else if p.X > r.Max.X {
		r.Max.X = p.X
	}

	if p.Y < r.Min.Y {
		r.Min.Y = p.Y
	} else if p.Y > r.Max.Y {
		r.Max.Y = p.Y
	}

	return r
}
