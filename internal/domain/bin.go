package domain

import (
	"cmp"
	"math"
	"slices"
)

// Grid limits used by BinTable.
const (
	lonOrigin  = 0.0
	lonExtent  = 360.0
	latOrigin  = -90.0
	latExtent  = 180.0
	presOrigin = 1000.0
)

// BinOptions sets the grid spacing. A nil DPres collapses pressure entirely.
type BinOptions struct {
	DLat  float64
	DLon  float64
	DPres *float64
}

// DefaultBinOptions returns 5x5 degree boxes with column sums.
func DefaultBinOptions() BinOptions {
	return BinOptions{DLat: 5, DLon: 5}
}

func (o BinOptions) validate() error {
	if !(o.DLat > 0) || !(o.DLon > 0) {
		return usageErrorf("bin", "dlat and dlon must be positive, got %g, %g", o.DLat, o.DLon)
	}
	if o.DPres != nil && !(*o.DPres > 0) {
		return usageErrorf("bin", "dpres must be positive, got %g", *o.DPres)
	}
	return nil
}

// BinKey identifies a grid box for one (cycle, platform, obtype, channel).
// Longitude and Latitude are the lower box edges; Pressure is the upper
// (larger) pressure edge and is only meaningful when HasPressure is set.
type BinKey struct {
	Key
	Longitude   float64 `json:"longitude"`
	Latitude    float64 `json:"latitude"`
	Pressure    float64 `json:"pressure,omitempty"`
	HasPressure bool    `json:"-"`
}

func (k BinKey) Compare(o BinKey) int {
	if c := k.Key.Compare(o.Key); c != 0 {
		return c
	}
	if c := cmp.Compare(k.Longitude, o.Longitude); c != 0 {
		return c
	}
	if c := cmp.Compare(k.Latitude, o.Latitude); c != 0 {
		return c
	}
	// Pressure decreases with height; list the surface box first.
	return cmp.Compare(o.Pressure, k.Pressure)
}

// BinnedRow sums impact and counts observations in one grid box. Beneficial
// and neutral counts are not computed on this path.
type BinnedRow struct {
	BinKey
	TotImp float64 `json:"TotImp"`
	ObCnt  int     `json:"ObCnt"`
}

// BinnedTable is an immutable set of BinnedRows ordered by key.
type BinnedTable struct {
	rows []BinnedRow
}

// Len returns the number of populated boxes.
func (b BinnedTable) Len() int { return len(b.rows) }

// Rows returns a copy of the rows.
func (b BinnedTable) Rows() []BinnedRow { return slices.Clone(b.rows) }

// BinTable assigns each record to a grid box and sums impact per box.
// Negative longitudes are shifted into [0, 360) and latitudes below -90 are
// clamped to -90 first.
func BinTable(t Table, opts BinOptions) (BinnedTable, error) {
	if err := opts.validate(); err != nil {
		return BinnedTable{}, err
	}

	lon := newAscendingGrid(lonOrigin, lonOrigin+lonExtent+opts.DLon, opts.DLon)
	lat := newAscendingGrid(latOrigin, latOrigin+latExtent+opts.DLat, opts.DLat)
	var pres descendingGrid
	if opts.DPres != nil {
		pres = newDescendingGrid(presOrigin, 0, *opts.DPres)
	}

	idx := make(map[BinKey]int)
	var out []BinnedRow
	for _, rec := range t.records {
		k := BinKey{
			Key:       rec.Key,
			Longitude: lon.floor(normalizeLongitude(rec.Longitude)),
			Latitude:  lat.floor(math.Max(rec.Latitude, latOrigin)),
		}
		if opts.DPres != nil {
			k.Pressure = pres.ceil(rec.Pressure)
			k.HasPressure = true
		}

		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, BinnedRow{BinKey: k})
		}
		out[i].TotImp += rec.Impact
		out[i].ObCnt++
	}

	slices.SortFunc(out, func(a, b BinnedRow) int { return a.BinKey.Compare(b.BinKey) })
	return BinnedTable{rows: out}, nil
}

func normalizeLongitude(lon float64) float64 {
	if lon < 0 {
		return lon + 360
	}
	return lon
}

// ascendingGrid holds edges origin, origin+step, ... strictly below stop.
type ascendingGrid struct {
	origin, step float64
	n            int
}

func newAscendingGrid(origin, stop, step float64) ascendingGrid {
	n := int(math.Ceil((stop - origin) / step))
	return ascendingGrid{origin: origin, step: step, n: max(n, 1)}
}

func (g ascendingGrid) edge(i int) float64 { return g.origin + float64(i)*g.step }

// floor returns the greatest edge <= v, or the first edge when v lies below
// the grid.
func (g ascendingGrid) floor(v float64) float64 {
	i := int(math.Floor((v - g.origin) / g.step))
	i = min(max(i, 0), g.n-1)
	// Correct for rounding in the division.
	for i+1 < g.n && g.edge(i+1) <= v {
		i++
	}
	for i > 0 && g.edge(i) > v {
		i--
	}
	return g.edge(i)
}

// descendingGrid holds edges origin, origin-step, ... strictly above stop.
type descendingGrid struct {
	origin, step float64
	n            int
}

func newDescendingGrid(origin, stop, step float64) descendingGrid {
	n := int(math.Ceil((origin - stop) / step))
	return descendingGrid{origin: origin, step: step, n: max(n, 1)}
}

func (g descendingGrid) edge(i int) float64 { return g.origin - float64(i)*g.step }

// ceil returns the smallest edge >= v, or the first (largest) edge when v
// lies above the grid.
func (g descendingGrid) ceil(v float64) float64 {
	i := int(math.Floor((g.origin - v) / g.step))
	i = min(max(i, 0), g.n-1)
	for i+1 < g.n && g.edge(i+1) >= v {
		i++
	}
	for i > 0 && g.edge(i) < v {
		i--
	}
	return g.edge(i)
}
