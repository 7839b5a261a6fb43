package chart

import (
	"math"
	"strconv"

	"github.com/couchcryptid/fsoi-stats/internal/domain"
)

// BarColorIndex maps observation counts onto an n-entry colormap. Counts at
// or below cmin take index 0, counts at or above cmax take n-1, and counts in
// between are spaced linearly, or linearly in log10 when logscale is set.
func BarColorIndex(counts []float64, logscale bool, cmin, cmax float64, n int) []int {
	lmin, lmax := math.Log10(cmin), math.Log10(cmax)
	top := float64(n - 1)

	out := make([]int, len(counts))
	for i, cnt := range counts {
		var idx float64
		switch {
		case cnt <= cmin:
			idx = 0
		case cnt >= cmax:
			idx = top
		case logscale:
			idx = (math.Log10(cnt) - lmin) / (lmax - lmin) * top
		default:
			idx = (cnt - cmin) / (cmax - cmin) * top
		}
		out[i] = int(idx)
	}
	return out
}

// Bar is one horizontal bar. For FracBenNeuObs, Value is the beneficial
// fraction and Stacked the neutral fraction drawn to its right.
type Bar struct {
	Label      string  `json:"label"`
	Value      float64 `json:"value"`
	Stacked    float64 `json:"stacked,omitempty"`
	Err        float64 `json:"err,omitempty"`
	ObCnt      int     `json:"obcnt"`
	ColorIndex int     `json:"color_index"`
}

// Plot is a renderer-ready summary chart. RefLine, when set, is an x
// position to mark: 50% for the beneficial fraction.
type Plot struct {
	Options Options  `json:"options"`
	Bars    []Bar    `json:"bars"`
	XMin    float64  `json:"xmin"`
	XMax    float64  `json:"xmax"`
	RefLine *float64 `json:"ref_line,omitempty"`
}

// Summary orders the rows of s for the chart described by opts. std, when
// non-empty, supplies error bars for TotImp.
func Summary(s domain.SummaryTable, std domain.BulkTable, opts Options) (Plot, error) {
	if err := opts.Validate(); err != nil {
		return Plot{}, err
	}
	qty := opts.Quantity
	sortCol := string(qty)
	if qty == FracBenNeuObs {
		sortCol = domain.ColFracBenObs
	}

	var err error
	if opts.Finite {
		if qty == FracBenNeuObs {
			if s, err = s.Finite(domain.ColFracBenObs); err != nil {
				return Plot{}, err
			}
			if s, err = s.Finite(domain.ColFracNeuObs); err != nil {
				return Plot{}, err
			}
		} else if s, err = s.Finite(sortCol); err != nil {
			return Plot{}, err
		}
	}

	if opts.Platform != "" {
		s = s.SortByKey(true)
	} else if s, err = s.SortBy(sortCol, opts.SortAscending); err != nil {
		return Plot{}, err
	}

	rows := s.Rows()
	counts := make([]float64, len(rows))
	for i, r := range rows {
		counts[i] = float64(r.ObCnt)
	}
	colors := BarColorIndex(counts, opts.LogScale, opts.CMin, opts.CMax, DefaultColormapSize)

	p := Plot{Options: opts, Bars: make([]Bar, len(rows))}
	for i, r := range rows {
		b := Bar{Label: barLabel(r.Key, opts.Platform != ""), ObCnt: r.ObCnt, ColorIndex: colors[i]}
		switch qty {
		case FracBenNeuObs:
			b.Value, b.Stacked = r.FracBenObs, r.FracNeuObs
		default:
			b.Value, _ = r.Value(sortCol)
		}
		if qty == TotImp {
			if sd, ok := std.Lookup(r.Key); ok {
				b.Err = sd.TotImp
			}
		}
		p.Bars[i] = b
	}

	p.XMin, p.XMax = xLimits(p.Bars)
	if qty == FracBenObs || qty == FracBenNeuObs {
		ref := benchmarkFractionPct
		p.RefLine = &ref
	}
	return p, nil
}

// barLabel names a bar by platform, or by observation type and channel when
// a single platform is broken down.
func barLabel(k domain.Key, detail bool) string {
	if !detail {
		return k.Platform
	}
	label := k.ObType
	if k.Channel != 0 {
		if label != "" {
			label += " "
		}
		label += strconv.Itoa(k.Channel)
	}
	if label == "" {
		return k.Platform
	}
	return label
}

// xLimits pads the bar extent by a tenth on each side.
func xLimits(bars []Bar) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, b := range bars {
		left, right := b.Value, b.Value+b.Stacked
		if math.IsNaN(left) || math.IsNaN(right) {
			continue
		}
		lo = math.Min(lo, left)
		hi = math.Max(hi, right)
	}
	if math.IsInf(lo, 1) {
		return 0, 0
	}
	pad := 0.1 * (hi - lo)
	return lo - pad, hi + pad
}
