package pipeline

import (
	"encoding/json"
	"math"
	"slices"

	"github.com/couchcryptid/fsoi-stats/internal/chart"
	"github.com/couchcryptid/fsoi-stats/internal/domain"
)

// Comparison holds one summary quantity for several centers, laid out for a
// stacked bar chart: Values[i][j] is platform i at center j, NaN when the
// center has no such platform.
type Comparison struct {
	Quantity  string
	Platforms []string
	Centers   []string
	Palette   []string
	Values    [][]float64
}

// CompareTable pivots the summaries of reports into platform x center.
// When platforms is empty every platform reported by any center is used, in
// sorted order.
func CompareTable(reports []domain.Report, col string, platforms []string) (Comparison, error) {
	if _, err := (domain.SummaryRow{}).Value(col); err != nil {
		return Comparison{}, err
	}

	c := Comparison{Quantity: col, Centers: make([]string, len(reports))}
	byCenter := make([]map[string]float64, len(reports))
	seen := make(map[string]bool)
	for j, rep := range reports {
		c.Centers[j] = rep.Center
		byCenter[j] = make(map[string]float64)
		for _, row := range rep.Summary.Rows() {
			v, _ := row.Value(col)
			byCenter[j][row.Platform] = v
			if !seen[row.Platform] {
				seen[row.Platform] = true
				c.Platforms = append(c.Platforms, row.Platform)
			}
		}
	}
	if len(platforms) > 0 {
		c.Platforms = slices.Clone(platforms)
	} else {
		slices.Sort(c.Platforms)
	}
	c.Palette = chart.ComparePalette(c.Centers)

	c.Values = make([][]float64, len(c.Platforms))
	for i, p := range c.Platforms {
		c.Values[i] = make([]float64, len(reports))
		for j := range reports {
			v, ok := byCenter[j][p]
			if !ok {
				v = math.NaN()
			}
			c.Values[i][j] = v
		}
	}
	return c, nil
}

// MarshalJSON writes missing and non-finite values as null.
func (c Comparison) MarshalJSON() ([]byte, error) {
	values := make([][]*float64, len(c.Values))
	for i, row := range c.Values {
		values[i] = make([]*float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			values[i][j] = &row[j]
		}
	}
	return json.Marshal(struct {
		Quantity  string       `json:"quantity"`
		Platforms []string     `json:"platforms"`
		Centers   []string     `json:"centers"`
		Palette   []string     `json:"palette"`
		Values    [][]*float64 `json:"values"`
	}{c.Quantity, c.Platforms, c.Centers, c.Palette, values})
}
