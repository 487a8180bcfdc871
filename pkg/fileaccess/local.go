package fileaccess

import(
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// FSAccess is file access on the local file system.
type FSAccess struct {
}

func (fa *FSAccess)ListObjects(rootPath string, prefix string) ([]string, error) {
	result := []string{}

	rootOnly := filepath.Clean(rootPath)
	fullPath := fa.filePath(rootPath, prefix)

	err := filepath.Walk(fullPath, func(pathFound string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			toSave := pathFound
			if rootPath != "" && strings.HasPrefix(toSave, rootOnly+string(filepath.Separator)) {
				toSave = toSave[len(rootOnly)+1:]
			}
			result = append(result, toSave)
		}
		return nil
	})

	return result, err
}

func (fa *FSAccess)ReadObject(rootPath string, path string) ([]byte, error) {
	return os.ReadFile(fa.filePath(rootPath, path))
}

// WriteObject creates any missing parent directories.
func (fa *FSAccess)WriteObject(rootPath string, path string, data []byte) error {
	fullPath := fa.filePath(rootPath, path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(fullPath, data, 0644)
}

func (fa *FSAccess)IsNotFoundError(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func (fa *FSAccess)filePath(rootPath string, path string) string {
	if rootPath == "" {
		return path
	}
	return filepath.Join(rootPath, path)
}
