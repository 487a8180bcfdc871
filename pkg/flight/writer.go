package flight

import(
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/abworrall/rededge-refl/pkg/calerr"
	"github.com/abworrall/rededge-refl/pkg/elog"
	"github.com/abworrall/rededge-refl/pkg/imgio"
	"github.com/abworrall/rededge-refl/pkg/refl"
)

const(
	FormatTIFF16 = "tiff16"
	FormatHDR    = "hdr"
)

func FormatExt(format string) (string, error) {
	switch format {
	case FormatTIFF16, "": return "", nil
	case FormatHDR:        return ".hdr", nil
	default:
		return "", errors.Wrapf(calerr.ErrConfig, "no output format named '%s'", format)
	}
}

// Writer is the refl.Sink for a flight: it encodes the reflectance grid,
// then optionally copies the camera tags over and drops a quicklook PNG.
type Writer struct {
	Format        string
	Scale         float64 // tiff16 only; reflectance 1.0 becomes this DN
	CopyMetadata  bool
	ExifTool      string
	QuicklookDir  string // empty means no quicklooks
	QuicklookSize int
	Log           elog.Logger
}

func (w Writer)Write(job refl.Job, c refl.Corrected) error {
	switch w.Format {
	case FormatTIFF16, "":
		if err := imgio.WriteTIFF16(c.Reflectance, w.Scale, job.Dst); err != nil {
			return err
		}
	case FormatHDR:
		if err := imgio.WriteHDR(c.Reflectance, job.Dst); err != nil {
			return err
		}
	default:
		return errors.Wrapf(calerr.ErrConfig, "no output format named '%s'", w.Format)
	}

	// The injected calibration model (if any) is not carried over; only
	// the source file's own tags are.
	if w.CopiesMetadata() {
		if err := CopyMetadata(w.ExifTool, job.Src, job.Dst); err != nil {
			return err
		}
	} else if w.CopyMetadata {
		elog.OrNull(w.Log).Debugf("%s: exiftool can't write %s files, tags not copied", job.Dst, w.Format)
	}

	if w.QuicklookDir != "" {
		if err := os.MkdirAll(w.QuicklookDir, 0755); err != nil {
			return err
		}
		png := filepath.Join(w.QuicklookDir, strings.TrimSuffix(FlatName(job.Dst), filepath.Ext(job.Dst))+".png")
		if err := imgio.WriteQuicklook(c.Reflectance, w.QuicklookSize, png); err != nil {
			return err
		}
		elog.OrNull(w.Log).Debugf("quicklook %s", png)
	}

	return nil
}

// CopiesMetadata is false for hdr output, even if CopyMetadata is set:
// exiftool can read Radiance files but not write them.
func (w Writer)CopiesMetadata() bool {
	return w.CopyMetadata && w.Format != FormatHDR
}

// CopyMetadata runs `exiftool dst -overwrite_original -q -tagsFromFile src`.
func CopyMetadata(exiftool, src, dst string) error {
	if exiftool == "" {
		exiftool = "exiftool"
	}

	var stderr bytes.Buffer
	cmd := exec.Command(exiftool, dst, "-overwrite_original", "-q", "-tagsFromFile", src)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "exiftool copy '%s' -> '%s': %s", src, dst, strings.TrimSpace(stderr.String()))
	}
	return nil
}
