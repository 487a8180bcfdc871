package region

import(
	"bufio"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/abworrall/rededge-refl/pkg/calerr"
	"github.com/abworrall/rededge-refl/pkg/diag"
	"github.com/abworrall/rededge-refl/pkg/emath"
)

// Prompt asks an operator for the panel corners. It writes a preview PNG
// with a labelled pixel grid into PreviewDir, then reads "x0 y0 x1 y1"
// from In. A line of "q" (or In closing, or ctx being cancelled) aborts
// with ErrAborted.
type Prompt struct {
	In         io.Reader
	Out        io.Writer
	PreviewDir string
	GridStep   int

	once  sync.Once
	lines chan string
}

func (p *Prompt)String() string { return fmt.Sprintf("Prompt{preview:%s}", p.PreviewDir) }

// One reader goroutine per Prompt, so a line typed after a cancelled
// Select is not lost to a stranded read.
func (p *Prompt)start() {
	p.lines = make(chan string)
	go func() {
		scanner := bufio.NewScanner(p.In)
		for scanner.Scan() {
			p.lines <- scanner.Text()
		}
		close(p.lines)
	}()
}

func (p *Prompt)Select(ctx context.Context, filename string, img emath.FloatGrid) (image.Rectangle, error) {
	p.once.Do(p.start)
	out := p.Out
	if out == nil {
		out = io.Discard
	}

	if p.PreviewDir != "" {
		stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
		preview := filepath.Join(p.PreviewDir, stem+"-select.png")
		if err := os.MkdirAll(p.PreviewDir, 0755); err != nil {
			return image.Rectangle{}, errors.Wrapf(err, "preview dir '%s'", p.PreviewDir)
		}
		if err := diag.GridOverlay(img, p.GridStep, preview); err != nil {
			return image.Rectangle{}, err
		}
		fmt.Fprintf(out, "Preview of %s written to %s\n", filename, preview)
	}

	for {
		fmt.Fprintf(out, "Panel corners for %s (%dx%d) as 'x0 y0 x1 y1', or q to abort: ", filepath.Base(filename), img.Dx(), img.Dy())

		select {
		case <-ctx.Done():
			return image.Rectangle{}, errors.Wrapf(calerr.ErrAborted, "%s: %v", filename, ctx.Err())

		case line, ok := <-p.lines:
			if !ok {
				return image.Rectangle{}, errors.Wrapf(calerr.ErrAborted, "%s: input closed", filename)
			}
			line = strings.TrimSpace(line)
			if line == "q" || line == "quit" {
				return image.Rectangle{}, errors.Wrapf(calerr.ErrAborted, "%s", filename)
			}

			r, err := ParseRect(line)
			if err != nil {
				fmt.Fprintf(out, "%v\n", err)
				continue
			}
			return Clip(r, img), nil
		}
	}
}

// ParseRect reads "x0 y0 x1 y1" (commas allowed) as two opposite corners.
func ParseRect(s string) (image.Rectangle, error) {
	var x0, y0, x1, y1 int
	s = strings.ReplaceAll(s, ",", " ")
	if n, err := fmt.Sscanf(s, "%d %d %d %d", &x0, &y0, &x1, &y1); err != nil || n != 4 {
		return image.Rectangle{}, errors.Wrapf(calerr.ErrParse, "rectangle %q, want 'x0 y0 x1 y1'", s)
	}
	return image.Rect(x0, y0, x1, y1), nil
}
