package emath

import(
	"fmt"
	"image"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// RegionStats summarises the values inside a rectangle of a grid.
type RegionStats struct {
	N      int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64 // sample standard deviation
}

func (rs RegionStats)String() string {
	return fmt.Sprintf("n=%d min=%.4f max=%.4f mean=%.4f sd=%.4f", rs.N, rs.Min, rs.Max, rs.Mean, rs.StdDev)
}

// StatsIn computes stats over the part of r that lies inside the grid. An
// empty region gives N == 0 and zero values.
func (fg FloatGrid)StatsIn(r image.Rectangle) RegionStats {
	sub := fg.SubGrid(r)
	vals := sub.Values()
	if len(vals) == 0 {
		return RegionStats{}
	}

	rs := RegionStats{
		N:   len(vals),
		Min: floats.Min(vals),
		Max: floats.Max(vals),
	}
	if len(vals) == 1 {
		rs.Mean = vals[0]
		return rs
	}
	rs.Mean, rs.StdDev = stat.MeanStdDev(vals, nil)
	return rs
}
