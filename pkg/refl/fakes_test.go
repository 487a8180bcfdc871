package refl

import(
	"fmt"
	"image"
	"sync"

	"github.com/abworrall/rededge-refl/pkg/emath"
	"github.com/abworrall/rededge-refl/pkg/meta"
	"github.com/abworrall/rededge-refl/pkg/panel"
	"github.com/abworrall/rededge-refl/pkg/radiometry"
	"github.com/abworrall/rededge-refl/pkg/region"
)

// fakeImage is a flat 10x10 frame with the given DN everywhere.
type fakeImage struct {
	dn   float64
	tags map[string]string
}

type fakeSource map[string]fakeImage

func (fs fakeSource)Load(filename string) (emath.FloatGrid, *meta.Metadata, error) {
	img, exists := fs[filename]
	if !exists {
		return emath.FloatGrid{}, nil, fmt.Errorf("open+r img '%s': no such file", filename)
	}
	md := meta.NewMetadata(filename)
	for k, v := range img.tags {
		md.Set(k, v)
	}
	g := emath.NewFloatGrid(10, 10)
	for i := range g.Values() {
		g.Values()[i] = img.dn
	}
	return g, md, nil
}

func tags(band, firmware, created string) map[string]string {
	return map[string]string{
		meta.TagBandName:               band,
		meta.TagSoftware:               firmware,
		meta.TagCreateDate:             created,
		meta.TagRadiometricCalibration: "1,0,0",
	}
}

// scaleConverter's radiance is DN times the first RadiometricCalibration
// coefficient, so injected models are visible in the output.
type scaleConverter struct{}

func (scaleConverter)Radiance(md *meta.Metadata, raw emath.FloatGrid) (emath.FloatGrid, radiometry.Products, error) {
	rc, err := md.CalibrationFloats("RadiometricCalibration")
	if err != nil {
		return emath.FloatGrid{}, radiometry.Products{}, err
	}
	return raw.Scaled(rc[0]), radiometry.Products{}, nil
}

type memSink struct {
	sync.Mutex
	written map[string]Corrected
}

func (ms *memSink)Write(job Job, c Corrected) error {
	ms.Lock()
	defer ms.Unlock()
	if ms.written == nil {
		ms.written = map[string]Corrected{}
	}
	ms.written[job.Dst] = c
	return nil
}

func testExtractor(src fakeSource) Extractor {
	return Extractor{
		Panels:    panel.New("test", map[string]float64{"Red": 0.50, "NIR": 0.48}),
		Source:    src,
		Converter: scaleConverter{},
		Selector:  region.Fixed{Rect: image.Rect(2, 2, 8, 8)},
	}
}
