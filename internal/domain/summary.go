package domain

import (
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"slices"
)

// SummaryRow adds derived ratios to a bulk row. Ratios follow IEEE division:
// a zero denominator yields NaN or ±Inf, which callers drop with Finite
// before plotting.
type SummaryRow struct {
	Key
	TotImp     float64
	ObCnt      int
	ImpPerOb   float64
	FracBenObs float64
	FracNeuObs float64
	FracImp    float64
}

// Value returns the named column as a float.
func (r SummaryRow) Value(col string) (float64, error) {
	switch col {
	case ColTotImp:
		return r.TotImp, nil
	case ColObCnt:
		return float64(r.ObCnt), nil
	case ColImpPerOb:
		return r.ImpPerOb, nil
	case ColFracBenObs:
		return r.FracBenObs, nil
	case ColFracNeuObs:
		return r.FracNeuObs, nil
	case ColFracImp:
		return r.FracImp, nil
	default:
		return 0, usageErrorf("summary", "unknown column %q", col)
	}
}

type summaryRowJSON struct {
	Key
	TotImp     *float64 `json:"TotImp"`
	ObCnt      int      `json:"ObCnt"`
	ImpPerOb   *float64 `json:"ImpPerOb"`
	FracBenObs *float64 `json:"FracBenObs"`
	FracNeuObs *float64 `json:"FracNeuObs"`
	FracImp    *float64 `json:"FracImp"`
}

// MarshalJSON encodes non-finite ratios as null.
func (r SummaryRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(summaryRowJSON{
		Key:        r.Key,
		TotImp:     finitePtr(r.TotImp),
		ObCnt:      r.ObCnt,
		ImpPerOb:   finitePtr(r.ImpPerOb),
		FracBenObs: finitePtr(r.FracBenObs),
		FracNeuObs: finitePtr(r.FracNeuObs),
		FracImp:    finitePtr(r.FracImp),
	})
}

// UnmarshalJSON decodes null ratios as NaN.
func (r *SummaryRow) UnmarshalJSON(data []byte) error {
	var aux summaryRowJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = SummaryRow{
		Key:        aux.Key,
		TotImp:     valueOrNaN(aux.TotImp),
		ObCnt:      aux.ObCnt,
		ImpPerOb:   valueOrNaN(aux.ImpPerOb),
		FracBenObs: valueOrNaN(aux.FracBenObs),
		FracNeuObs: valueOrNaN(aux.FracNeuObs),
		FracImp:    valueOrNaN(aux.FracImp),
	}
	return nil
}

func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// SummaryTable is an immutable list of SummaryRows. Row order is the order of
// the input table unless re-sorted with SortBy.
type SummaryTable struct {
	rows []SummaryRow
}

// NewSummaryTable copies rows into a SummaryTable, keeping their order.
func NewSummaryTable(rows ...SummaryRow) SummaryTable {
	out := make([]SummaryRow, len(rows))
	for i, r := range rows {
		r.DateTime = normalizeTime(r.DateTime)
		out[i] = r
	}
	return SummaryTable{rows: out}
}

// Len returns the number of rows.
func (s SummaryTable) Len() int { return len(s.rows) }

// Rows returns a copy of the rows.
func (s SummaryTable) Rows() []SummaryRow { return slices.Clone(s.rows) }

// Column returns the named column in row order.
func (s SummaryTable) Column(col string) ([]float64, error) {
	out := make([]float64, len(s.rows))
	for i, r := range s.rows {
		v, err := r.Value(col)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Finite drops rows whose col value is NaN or infinite.
func (s SummaryTable) Finite(col string) (SummaryTable, error) {
	out := make([]SummaryRow, 0, len(s.rows))
	for _, r := range s.rows {
		v, err := r.Value(col)
		if err != nil {
			return SummaryTable{}, err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, r)
	}
	return SummaryTable{rows: out}, nil
}

// SortBy returns a copy sorted on col. NaN values always come first; ties
// keep their previous order.
func (s SummaryTable) SortBy(col string, ascending bool) (SummaryTable, error) {
	if _, err := (SummaryRow{}).Value(col); err != nil {
		return SummaryTable{}, err
	}
	out := slices.Clone(s.rows)
	slices.SortStableFunc(out, func(a, b SummaryRow) int {
		av, _ := a.Value(col)
		bv, _ := b.Value(col)
		aNaN, bNaN := math.IsNaN(av), math.IsNaN(bv)
		switch {
		case aNaN && bNaN:
			return 0
		case aNaN:
			return -1
		case bNaN:
			return 1
		}
		if ascending {
			return cmp.Compare(av, bv)
		}
		return cmp.Compare(bv, av)
	})
	return SummaryTable{rows: out}, nil
}

// SortByKey returns a copy ordered by key, descending when reverse is set.
func (s SummaryTable) SortByKey(reverse bool) SummaryTable {
	out := slices.Clone(s.rows)
	slices.SortStableFunc(out, func(a, b SummaryRow) int {
		if reverse {
			return b.Key.Compare(a.Key)
		}
		return a.Key.Compare(b.Key)
	})
	return SummaryTable{rows: out}
}

func (s SummaryTable) MarshalJSON() ([]byte, error) {
	if s.rows == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.rows)
}

func (s *SummaryTable) UnmarshalJSON(data []byte) error {
	var rows []SummaryRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("decode summary table: %w", err)
	}
	s.rows = rows
	return nil
}

// SummaryMetrics derives per-row ratios from b:
//
//	ImpPerOb   = TotImp / ObCnt
//	FracBenObs = ObCntBen / (ObCnt - ObCntNeu) * 100
//	FracNeuObs = ObCntNeu / (ObCnt - ObCntBen) * 100
//	FracImp    = TotImp / sum(TotImp) * 100
//
// The FracImp denominator covers every row of b, so callers filter to the
// comparison set first.
func SummaryMetrics(b BulkTable) SummaryTable {
	var total float64
	for _, r := range b.rows {
		total += r.TotImp
	}

	out := make([]SummaryRow, len(b.rows))
	for i, r := range b.rows {
		out[i] = SummaryRow{
			Key:        r.Key,
			TotImp:     r.TotImp,
			ObCnt:      r.ObCnt,
			ImpPerOb:   r.TotImp / float64(r.ObCnt),
			FracBenObs: float64(r.ObCntBen) / float64(r.ObCnt-r.ObCntNeu) * 100,
			FracNeuObs: float64(r.ObCntNeu) / float64(r.ObCnt-r.ObCntBen) * 100,
			FracImp:    r.TotImp / total * 100,
		}
	}
	return SummaryTable{rows: out}
}
