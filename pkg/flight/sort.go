package flight

import(
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/abworrall/rededge-refl/pkg/elog"
)

// Band number is the last "_N" before the extension: IMG_0123_4.tif
var bandSuffix = regexp.MustCompile(`_(\d+)\.(?i:tiff?)$`)

// SortByBand runs after a flight is processed. Every image under refl/ is
// renamed so its set and subfolder are part of the file name, and then
// moved into <root>/band<N>/. Existing files are never overwritten. It
// returns the final paths.
func SortByBand(root string, log elog.Logger) ([]string, error) {
	log = elog.OrNull(log)
	l := Layout{Root: root}

	images, err := FindImages(l.Refl())
	if err != nil {
		return nil, err
	}

	sorted := []string{}
	for _, img := range images {
		m := bandSuffix.FindStringSubmatch(filepath.Base(img))
		if m == nil {
			log.Infof("%s: no band number, left alone", img)
			continue
		}

		name := filepath.Base(img)
		if filepath.Dir(img) != l.Refl() {
			name = FlatName(img)
		}
		dst := filepath.Join(root, "band"+m[1], name)
		if err := move(img, dst); err != nil {
			return sorted, err
		}
		log.Debugf("%s -> %s", img, dst)
		sorted = append(sorted, dst)
	}

	return sorted, nil
}

func move(src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("move %s: '%s' already exists", src, dst)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("move %s: %v", src, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("move %s: %v", src, err)
	}
	return nil
}
