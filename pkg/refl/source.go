package refl

import(
	"github.com/abworrall/rededge-refl/pkg/emath"
	"github.com/abworrall/rededge-refl/pkg/imgio"
	"github.com/abworrall/rededge-refl/pkg/meta"
)

// An ImageSource provides the raw counts and a fresh Metadata for a file.
type ImageSource interface {
	Load(filename string) (emath.FloatGrid, *meta.Metadata, error)
}

// FileSource reads TIFFs from disk, and their tags with Meta.
type FileSource struct {
	Meta meta.Reader
}

func (fs FileSource)Load(filename string) (emath.FloatGrid, *meta.Metadata, error) {
	md, err := fs.Meta.Read(filename)
	if err != nil {
		return emath.FloatGrid{}, nil, err
	}
	raw, err := imgio.LoadRawTIFF(filename)
	if err != nil {
		return emath.FloatGrid{}, nil, err
	}
	return raw, md, nil
}
