package refl

import(
	"context"
	"fmt"
	"image"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/rededge-refl/pkg/calerr"
	"github.com/abworrall/rededge-refl/pkg/emath"
	"github.com/abworrall/rededge-refl/pkg/fileaccess"
	"github.com/abworrall/rededge-refl/pkg/meta"
	"github.com/abworrall/rededge-refl/pkg/region"
)

// Panel Red=0.50; pre-flight mean radiance 0.25 at JD 2458000.0, post-flight
// 0.20 at JD 2458000.5.
var e2eSource = fakeSource{
	"pre/IMG_0000_3.tif":  {0.25, tags("Red", "v2.1.0", "2017:09:03 12:00:00")},
	"post/IMG_0100_3.tif": {0.20, tags("Red", "v2.1.0", "2017:09:04 00:00:00")},
	"raw/IMG_0050_3.tif":  {1.00, tags("Red", "v2.1.0", "2017:09:03 18:00:00")},
	"raw/IMG_0050_4.tif":  {1.00, tags("NIR", "v2.1.0", "2017:09:03 18:00:00")},
	"raw/IMG_0051_3.tif":  {0.50, tags("Red", "v2.1.0", "2017:09:03 18:00:00")},
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	ex := testExtractor(e2eSource)

	pre, err := ex.Extract(ctx, "pre/IMG_0000_3.tif", nil, true)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, pre.Factor, 1e-12)
	assert.Equal(t, 2458000.0, pre.JulianDate())

	post, err := ex.Extract(ctx, "post/IMG_0100_3.tif", nil, true)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, post.Factor, 1e-12)
	assert.Equal(t, 2458000.5, post.JulianDate())

	dt, err := Derive(ctx, ex, []string{"pre/IMG_0000_3.tif"}, []string{"post/IMG_0100_3.tif"}, nil)
	require.NoError(t, err)
	dm, err := dt.Lookup("Red")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, dm.M, 1e-9)
	assert.InDelta(t, -2457998.0, dm.C, 1e-5)
	assert.InDelta(t, 2.25, dm.FactorAtJD(2458000.25), 1e-6)

	corr := Corrector{Drift: dt, Converter: scaleConverter{}}
	raw, md, err := e2eSource.Load("raw/IMG_0050_3.tif")
	require.NoError(t, err)
	out, err := corr.Correct(raw, md)
	require.NoError(t, err)
	assert.InDelta(t, 2.25, out.Factor, 1e-6)
	assert.InDelta(t, 2.25, out.Reflectance.Get(5, 5), 1e-6)
}

func TestFitIsExactInterpolation(t *testing.T) {
	for _, tc := range [][4]float64{
		{2458000.0, 2.0, 2458000.5, 2.5},
		{2457957.41, 1.37, 2457957.52, 1.29},
		{0, -3, 1e-3, 7},
		{2451545.0, 0.0001, 2451546.0, 1000},
	} {
		m, c, err := FitLine(tc[0], tc[1], tc[2], tc[3])
		require.NoError(t, err)
		assert.InDelta(t, tc[1], m*tc[0]+c, 1e-6*math.Max(1, math.Abs(tc[1])), "%v", tc)
		assert.InDelta(t, tc[3], m*tc[2]+c, 1e-6*math.Max(1, math.Abs(tc[3])), "%v", tc)
	}
}

func TestFitDegenerate(t *testing.T) {
	ts := time.Date(2017, 7, 23, 14, 0, 0, 0, time.UTC)
	pre := PanelObservation{Filename: "a.tif", Band: "Red", Factor: 2, Time: ts, HasTime: true}
	post := PanelObservation{Filename: "b.tif", Band: "Red", Factor: 3, Time: ts, HasTime: true}

	dm, err := Fit("Red", pre, post)
	assert.True(t, errors.Is(err, calerr.ErrDegenerateFit))
	assert.False(t, math.IsNaN(dm.M) || math.IsInf(dm.M, 0))

	post.HasTime = false
	_, err = Fit("Red", pre, post)
	assert.True(t, errors.Is(err, calerr.ErrDegenerateFit))

	// Bands are never mixed
	post.HasTime, post.Band = true, "NIR"
	post.Time = ts.Add(time.Hour)
	_, err = Fit("Red", pre, post)
	assert.True(t, errors.Is(err, calerr.ErrLookup))
}

func TestExtractIsDeterministic(t *testing.T) {
	ex := testExtractor(e2eSource)
	a, err := ex.Extract(context.Background(), "pre/IMG_0000_3.tif", nil, true)
	require.NoError(t, err)
	b, err := ex.Extract(context.Background(), "pre/IMG_0000_3.tif", nil, true)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestExtractErrors(t *testing.T) {
	src := fakeSource{
		"zero.tif":    {0, tags("Red", "v2.1.0", "2017:09:03 12:00:00")},
		"neg.tif":     {-0.25, tags("Red", "v2.1.0", "2017:09:03 12:00:00")},
		"huge.tif":    {math.MaxFloat64, tags("Red", "v2.1.0", "2017:09:03 12:00:00")},
		"blue.tif":    {0.3, tags("Blue", "v2.1.0", "2017:09:03 12:00:00")},
		"old.tif":     {0.25, tags("Red", "v2.0.5", "2017:09:03 12:00:00")},
		"badfw.tif":   {0.25, tags("Red", "2.1", "2017:09:03 12:00:00")},
		"badtime.tif": {0.25, tags("Red", "v2.1.0", "2017-09-03T12:00:00")},
	}
	ctx := context.Background()
	ex := testExtractor(src)

	_, err := ex.Extract(ctx, "zero.tif", nil, false)
	assert.True(t, errors.Is(err, calerr.ErrDivision), "zero mean: %v", err)
	_, err = ex.Extract(ctx, "neg.tif", nil, false)
	assert.True(t, errors.Is(err, calerr.ErrDivision), "negative mean: %v", err)
	_, err = ex.Extract(ctx, "huge.tif", nil, false)
	assert.True(t, errors.Is(err, calerr.ErrDivision), "infinite mean: %v", err)

	_, err = ex.Extract(ctx, "blue.tif", nil, false)
	assert.True(t, errors.Is(err, calerr.ErrLookup), "unknown band: %v", err)

	_, err = ex.Extract(ctx, "old.tif", nil, false)
	assert.True(t, errors.Is(err, calerr.ErrCalibrationRequired), "old firmware: %v", err)

	_, err = ex.Extract(ctx, "badfw.tif", nil, false)
	assert.True(t, errors.Is(err, calerr.ErrParse), "bad firmware: %v", err)

	_, err = ex.Extract(ctx, "badtime.tif", nil, true)
	assert.True(t, errors.Is(err, calerr.ErrParse), "bad time: %v", err)
	_, err = ex.Extract(ctx, "badtime.tif", nil, false)
	assert.NoError(t, err)

	_, err = ex.Extract(ctx, "missing.tif", nil, false)
	assert.Error(t, err)

	ex.Selector = region.Fixed{Rect: image.Rect(20, 20, 30, 30)}
	_, err = ex.Extract(ctx, "old.tif", testModel(t), false)
	assert.True(t, errors.Is(err, calerr.ErrDivision), "zero area: %v", err)
}

func testModel(t *testing.T) *meta.CalibrationModel {
	model, err := meta.ParseCalibrationModel([]byte("[Model]\nRadiometricCalibration = 2.0, 0, 0\n"), "calmodel.config")
	require.NoError(t, err)
	return model
}

func TestExtractModelOverride(t *testing.T) {
	ex := testExtractor(fakeSource{
		"old.tif": {0.25, tags("Red", "v2.0.5", "2017:09:03 12:00:00")},
		"new.tif": {0.25, tags("Red", "v3.0.0", "2017:09:03 12:00:00")},
	})
	model := testModel(t)

	// Old firmware, model supplied: radiance is doubled by the model
	po, err := ex.Extract(context.Background(), "old.tif", model, false)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, po.Factor, 1e-12)

	// New firmware, model supplied: the model still wins
	po, err = ex.Extract(context.Background(), "new.tif", model, false)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, po.Factor, 1e-12)

	// Shared model is never modified by injection
	assert.Equal(t, []float64{2, 0, 0}, model.Params["radiometriccalibration"].Seq)
}

type abortSelector struct{}

func (abortSelector)Select(ctx context.Context, filename string, img emath.FloatGrid) (image.Rectangle, error) {
	return image.Rectangle{}, errors.Wrap(calerr.ErrAborted, filename)
}

func TestDeriveFailures(t *testing.T) {
	src := fakeSource{
		"pre/r.tif":  {0.25, tags("Red", "v2.1.0", "2017:09:03 12:00:00")},
		"pre/n.tif":  {0.25, tags("NIR", "v2.1.0", "2017:09:03 12:01:00")},
		"post/r.tif": {0.20, tags("Red", "v2.1.0", "2017:09:04 00:00:00")},
		"post/r2.tif": {0.20, tags("Red", "v2.1.0", "2017:09:04 00:01:00")},
	}
	ctx := context.Background()
	ex := testExtractor(src)

	dt, err := Derive(ctx, ex, []string{"pre/r.tif", "pre/n.tif"}, []string{"post/r.tif"}, nil)
	assert.True(t, errors.Is(err, calerr.ErrLookup), "%v", err)
	assert.Nil(t, dt)

	_, err = Derive(ctx, ex, []string{"pre/r.tif"}, []string{"post/r.tif", "post/r2.tif"}, nil)
	assert.True(t, errors.Is(err, calerr.ErrConfig), "%v", err)

	_, err = Derive(ctx, ex, []string{"pre/r.tif"}, nil, nil)
	assert.True(t, errors.Is(err, calerr.ErrConfig), "%v", err)

	ex.Selector = abortSelector{}
	dt, err = Derive(ctx, ex, []string{"pre/r.tif"}, []string{"post/r.tif"}, nil)
	assert.True(t, errors.Is(err, calerr.ErrAborted), "%v", err)
	assert.Nil(t, dt)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Derive(cancelled, testExtractor(src), []string{"pre/r.tif"}, []string{"post/r.tif"}, nil)
	assert.True(t, errors.Is(err, calerr.ErrAborted), "%v", err)
}

func TestDriftTableRoundTrip(t *testing.T) {
	dt, err := NewDriftTable(
		DriftModel{Band: "Red", Reflectance: 0.5, Pre: 2.0, Post: 2.4999999999999996, M: 0.9999999999999991, C: -2455997.9999999977},
		DriftModel{Band: "Red edge", Reflectance: 0.54, Pre: 1.0/3.0, Post: math.Pi, M: 1e-300, C: -0.1},
	)
	require.NoError(t, err)

	data, err := dt.Marshal()
	require.NoError(t, err)
	back, err := ParseDriftTable(data, "mem")
	require.NoError(t, err)
	assert.Equal(t, dt, back)

	fa := &fileaccess.FSAccess{}
	dir := t.TempDir()
	require.NoError(t, dt.Save(fa, dir, DefaultParamsFilename))
	back, err = LoadDriftTable(fa, dir, DefaultParamsFilename)
	require.NoError(t, err)
	assert.Equal(t, dt, back)

	fn := filepath.Join(t.TempDir(), "sub", DefaultParamsFilename)
	require.NoError(t, SaveDriftTable(dt, fn, ""))
	back, err = OpenDriftTable(fn, "")
	require.NoError(t, err)
	assert.Equal(t, dt, back)
}

func TestDriftTableErrors(t *testing.T) {
	for name, csv := range map[string]string{
		"missing column": "band,factor,p1,p2,m\nRed,0.5,2,2.5,1\n",
		"duplicate band": "band,factor,p1,p2,m,c\nRed,0.5,2,2.5,1,0\nRed,0.5,2,2.5,1,0\n",
		"bad number":     "band,factor,p1,p2,m,c\nRed,0.5,2,2.5,one,0\n",
		"no rows":        "band,factor,p1,p2,m,c\n",
		"nan slope":      "band,factor,p1,p2,m,c\nRed,0.5,2,2.5,NaN,0\n",
		"inf intercept":  "band,factor,p1,p2,m,c\nRed,0.5,2,2.5,1,-Inf\n",
		"empty":          "",
	} {
		_, err := ParseDriftTable([]byte(csv), name)
		assert.True(t, errors.Is(err, calerr.ErrConfig), "%s: %v", name, err)
	}

	_, err := OpenDriftTable(filepath.Join(t.TempDir(), "nope.csv"), "")
	assert.True(t, errors.Is(err, calerr.ErrConfig))

	dt, _ := NewDriftTable(DriftModel{Band: "Red"})
	_, err = dt.Lookup("NIR")
	assert.True(t, errors.Is(err, calerr.ErrLookup))
}

func e2eTable(t *testing.T) DriftTable {
	dt, err := NewDriftTable(DriftModel{Band: "Red", Reflectance: 0.5, Pre: 2, Post: 2.5, M: 1, C: -2457998})
	require.NoError(t, err)
	return dt
}

func TestBatchPartialFailure(t *testing.T) {
	sink := &memSink{}
	b := Batch{
		Workers:   3,
		Source:    e2eSource,
		Corrector: Corrector{Drift: e2eTable(t), Converter: scaleConverter{}},
		Sink:      sink,
		Metrics:   NewBatchMetrics(),
	}
	jobs := []Job{
		{Src: "raw/IMG_0050_3.tif", Dst: "refl/IMG_0050_3.tif"},
		{Src: "raw/IMG_0050_4.tif", Dst: "refl/IMG_0050_4.tif"},
		{Src: "raw/IMG_0051_3.tif", Dst: "refl/IMG_0051_3.tif"},
		{Src: "raw/missing.tif", Dst: "refl/missing.tif"},
	}

	report, err := b.Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 2, report.Processed)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, "raw/IMG_0050_4.tif", report.Failures[0].Filename)
	assert.True(t, errors.Is(report.Failures[0].Err, calerr.ErrLookup))
	assert.Equal(t, "raw/missing.tif", report.Failures[1].Filename)
	assert.False(t, report.OK())
	assert.Contains(t, report.String(), "raw/IMG_0050_4.tif")

	first, second := sink.written["refl/IMG_0050_3.tif"], sink.written["refl/IMG_0051_3.tif"]
	assert.InDelta(t, 2.25, first.Reflectance.Get(0, 0), 1e-6)
	assert.InDelta(t, 1.125, second.Reflectance.Get(9, 9), 1e-6)

	assert.Equal(t, 2.0, testutil.ToFloat64(b.Metrics.Processed))
	assert.Equal(t, 2.0, testutil.ToFloat64(b.Metrics.Failed))
	assert.Equal(t, int64(4), report.Latency.N)
}

func TestBatchStrict(t *testing.T) {
	b := Batch{
		Workers:   1,
		Strict:    true,
		Source:    e2eSource,
		Corrector: Corrector{Drift: e2eTable(t), Converter: scaleConverter{}},
		Sink:      &memSink{},
	}
	jobs := []Job{
		{Src: "raw/IMG_0050_4.tif", Dst: "refl/IMG_0050_4.tif"},
		{Src: "raw/IMG_0050_3.tif", Dst: "refl/IMG_0050_3.tif"},
		{Src: "raw/IMG_0051_3.tif", Dst: "refl/IMG_0051_3.tif"},
	}

	report, err := b.Run(context.Background(), jobs)
	assert.True(t, errors.Is(err, calerr.ErrLookup), "%v", err)
	assert.Len(t, report.Failures, 1)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 0, report.Processed)
}

func TestBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := Batch{Source: e2eSource, Corrector: Corrector{Drift: e2eTable(t), Converter: scaleConverter{}}, Sink: &memSink{}}
	report, err := b.Run(ctx, []Job{{Src: "raw/IMG_0050_3.tif"}})
	assert.True(t, errors.Is(err, calerr.ErrAborted))
	assert.Equal(t, 1, report.Skipped)
}

func TestCorrectorLens(t *testing.T) {
	raw, md, err := e2eSource.Load("raw/IMG_0050_3.tif")
	require.NoError(t, err)
	c := Corrector{Drift: e2eTable(t), Converter: scaleConverter{}, Lens: zeroLens{}}
	out, err := c.Correct(raw, md)
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.Reflectance.Get(5, 5))
}

type zeroLens struct{}

func (zeroLens)Undistort(md *meta.Metadata, img emath.FloatGrid) (emath.FloatGrid, error) {
	return img.NewFromThis(), nil
}

type fakeReader map[string]map[string]string

func (fr fakeReader)Read(filename string) (*meta.Metadata, error) {
	t, exists := fr[filename]
	if !exists {
		return nil, fmt.Errorf("no file %s", filename)
	}
	md := meta.NewMetadata(filename)
	for k, v := range t {
		md.Set(k, v)
	}
	return md, nil
}

func dlsTagsFor(band, created, irradiance string) map[string]string {
	return map[string]string{
		meta.TagBandName: band, meta.TagCreateDate: created,
		meta.TagIrradiance: irradiance, meta.TagIrradianceYaw: "10", meta.TagIrradiancePitch: "1.5",
		meta.TagIrradianceRoll: "-2", meta.TagIrradianceGain: "1", meta.TagIrradianceExposureTime: "0.001",
	}
}

func TestDLS(t *testing.T) {
	reader := fakeReader{
		"b.tif": dlsTagsFor("Red", "2017:07:23 14:00:05", "1.1"),
		"a.tif": dlsTagsFor("Red", "2017:07:23 14:00:01", "1.0"),
		"c.tif": dlsTagsFor("Red edge", "2017:07:23 14:00:01", "0.7"),
		"d.tif": dlsTagsFor("NIR", "2017:07:23 14:00:01", "bright"),
	}
	recs, failures := ExtractDLS(reader, []string{"b.tif", "a.tif", "c.tif", "d.tif", "e.tif"}, nil)
	assert.Len(t, recs, 3)
	require.Len(t, failures, 2)
	assert.True(t, errors.Is(failures[0].Err, calerr.ErrParse))

	byBand := GroupDLSByBand(recs)
	require.Len(t, byBand["Red"], 2)
	assert.Equal(t, "a.tif", byBand["Red"][0].Filename)
	assert.Equal(t, 1.5, byBand["Red"][0].Pitch)

	dir := t.TempDir()
	written, err := WriteDLS(&fileaccess.FSAccess{}, "", dir, recs)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "dls_Red.csv"), filepath.Join(dir, "dls_Red_edge.csv")}, written)
}

func ExampleFitLine() {
	m, c, _ := FitLine(2458000.0, 2.0, 2458000.5, 2.5)
	fmt.Printf("m=%.1f c=%.1f f(2458000.25)=%.2f\n", m, c, m*2458000.25+c)
	// Output: m=1.0 c=-2457998.0 f(2458000.25)=2.25
}
