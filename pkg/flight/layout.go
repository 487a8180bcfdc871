// Package flight knows how a survey flight is laid out on disk: raw camera
// frames under raw/, reflectance output mirrored under refl/, and the
// per-flight drift parameters at the top.
package flight

import(
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/abworrall/rededge-refl/pkg/refl"
)

const(
	RawDir  = "raw"
	ReflDir = "refl"
)

type Layout struct {
	Root string
}

func (l Layout)Raw() string  { return filepath.Join(l.Root, RawDir) }
func (l Layout)Refl() string { return filepath.Join(l.Root, ReflDir) }

// ParamsFile is where calc-rad2refl puts the drift table by default.
func (l Layout)ParamsFile() string { return filepath.Join(l.Root, refl.DefaultParamsFilename) }

// FindImages returns every .tif (any case) in the files and directories
// given, recursing into directories. The result is sorted.
func FindImages(args ...string) ([]string, error) {
	images := []string{}
	if err := findImages(&images, args...); err != nil {
		return nil, err
	}
	sort.Strings(images)
	return images, nil
}

func findImages(images *[]string, args ...string) error {
	for _, arg := range args {
		item, err := os.Stat(arg)

		switch {

		case err != nil:
			return fmt.Errorf("find %s: %v", arg, err)

		case item.IsDir():
			contents, err := ioutil.ReadDir(arg)
			if err != nil {
				return fmt.Errorf("readdir %s: %v", arg, err)
			}
			for _, content := range contents {
				if err := findImages(images, filepath.Join(arg, content.Name())); err != nil {
					return err
				}
			}

		case IsImage(arg):
			*images = append(*images, arg)
		}
	}

	return nil
}

func IsImage(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".tif" || ext == ".tiff"
}

// MirrorTree creates refl/ with the same directory structure as raw/.
func (l Layout)MirrorTree() error {
	raw := l.Raw()
	return filepath.Walk(raw, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		} else if !info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(raw, path)
		if err != nil {
			return err
		}
		return os.MkdirAll(filepath.Join(l.Refl(), rel), 0755)
	})
}

// Jobs maps each raw image to its place under refl/. The output keeps the
// raw file name, with the extension changed to suit the format.
func (l Layout)Jobs(images []string, format string) ([]refl.Job, error) {
	ext, err := FormatExt(format)
	if err != nil {
		return nil, err
	}

	jobs := []refl.Job{}
	for _, img := range images {
		rel, err := filepath.Rel(l.Raw(), img)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, fmt.Errorf("image '%s' is not under '%s'", img, l.Raw())
		}
		if ext != "" {
			rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + ext
		}
		jobs = append(jobs, refl.Job{Src: img, Dst: filepath.Join(l.Refl(), rel)})
	}
	return jobs, nil
}

// Plan finds the flight's raw images, builds the refl/ tree and returns
// the work to do.
func (l Layout)Plan(format string) ([]refl.Job, error) {
	images, err := FindImages(l.Raw())
	if err != nil {
		return nil, err
	}
	if err := l.MirrorTree(); err != nil {
		return nil, fmt.Errorf("mirror %s: %v", l.Raw(), err)
	}
	return l.Jobs(images, format)
}

// FlatName folds the two enclosing directories into the file name, so
// ".../0000SET/000/IMG_0001_1.tif" becomes "0000SET_000_IMG_0001_1.tif".
func FlatName(path string) string {
	dir, file := filepath.Split(filepath.Clean(path))
	dir = filepath.Clean(dir)
	sub := filepath.Base(dir)
	set := filepath.Base(filepath.Dir(dir))
	return set + "_" + sub + "_" + file
}
