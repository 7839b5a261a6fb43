// Package chart prepares summary tables for a bar-chart renderer: plot
// options, bar ordering and colour indices, and the per-center palette.
// Rasterisation happens elsewhere.
package chart

import (
	"fmt"
	"slices"
	"strings"

	"github.com/couchcryptid/fsoi-stats/internal/domain"
)

// Quantity is a plottable summary column.
type Quantity string

const (
	TotImp        Quantity = domain.ColTotImp
	ObCnt         Quantity = domain.ColObCnt
	ImpPerOb      Quantity = domain.ColImpPerOb
	FracBenObs    Quantity = domain.ColFracBenObs
	FracNeuObs    Quantity = domain.ColFracNeuObs
	FracImp       Quantity = domain.ColFracImp
	FracBenNeuObs Quantity = "FracBenNeuObs" // stacked beneficial + neutral
)

type quantityLabel struct {
	name          string
	unit          string
	sortAscending bool
}

var quantities = map[Quantity]quantityLabel{
	TotImp:        {"Total Impact", "(J/kg)", false},
	ObCnt:         {"Observation Count", "per Analysis", true},
	ImpPerOb:      {"Impact per Observation", "(J/kg)", false},
	FracBenNeuObs: {"Fraction of Ben. & Neu. Observations", "(%)", true},
	FracBenObs:    {"Fraction of Beneficial Observations", "(%)", true},
	FracNeuObs:    {"Fraction of Neutral Observations", "(%)", true},
	FracImp:       {"Fractional Impact", "(%)", true},
}

// Quantities lists the known quantities in display order.
func Quantities() []Quantity {
	return []Quantity{TotImp, ObCnt, ImpPerOb, FracBenNeuObs, FracBenObs, FracNeuObs, FracImp}
}

// Default colour scale.
const (
	DefaultAlpha         = 0.7
	DefaultColormap      = "Blues"
	DefaultColormapSize  = 256
	DefaultCMin          = 1e3
	DefaultCMax          = 1e6
	DefaultPlatformCMax  = 1e4
	defaultCycleLabel    = "00"
	benchmarkFractionPct = 50.0
)

// Options describes one summary chart.
type Options struct {
	Quantity Quantity `json:"quantity"`
	Center   string   `json:"center,omitempty"`
	Domain   string   `json:"domain,omitempty"`
	Platform string   `json:"platform,omitempty"`
	Cycles   []int    `json:"cycles,omitempty"`
	Save     bool     `json:"save"`
	LogScale bool     `json:"logscale"`
	Finite   bool     `json:"finite"`
	Alpha    float64  `json:"alpha"`
	Colormap string   `json:"cmap"`
	CMin     float64  `json:"cmin"`
	CMax     float64  `json:"cmax"`

	// Derived by NewOptions.
	CenterName    string `json:"center_name"`
	Title         string `json:"title"`
	FigName       string `json:"figname"`
	Name          string `json:"name"`
	XLabel        string `json:"xlabel"`
	SortAscending bool   `json:"sort_ascending"`

	cmaxSet bool
}

// Option customises Options.
type Option func(*Options)

func WithCenter(center string) Option { return func(o *Options) { o.Center = center } }

func WithDomain(domain string) Option { return func(o *Options) { o.Domain = domain } }

// WithPlatform draws a single platform broken down by channel or type.
// It lowers the default colour ceiling.
func WithPlatform(platform string) Option { return func(o *Options) { o.Platform = platform } }

func WithCycles(cycles ...int) Option {
	return func(o *Options) { o.Cycles = slices.Clone(cycles) }
}

func WithSave(save bool) Option { return func(o *Options) { o.Save = save } }

func WithLogScale(on bool) Option { return func(o *Options) { o.LogScale = on } }

func WithFinite(on bool) Option { return func(o *Options) { o.Finite = on } }

func WithAlpha(alpha float64) Option { return func(o *Options) { o.Alpha = alpha } }

func WithColormap(name string) Option { return func(o *Options) { o.Colormap = name } }

// WithColorRange sets the observation counts mapped to the ends of the
// colormap.
func WithColorRange(cmin, cmax float64) Option {
	return func(o *Options) {
		o.CMin, o.CMax = cmin, cmax
		o.cmaxSet = true
	}
}

// NewOptions returns the options for qty with labels derived from center,
// domain and cycles.
func NewOptions(qty Quantity, opts ...Option) (Options, error) {
	o := Options{
		Quantity: qty,
		LogScale: true,
		Finite:   true,
		Alpha:    DefaultAlpha,
		Colormap: DefaultColormap,
		CMin:     DefaultCMin,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.cmaxSet {
		o.CMax = DefaultCMax
		if o.Platform != "" {
			o.CMax = DefaultPlatformCMax
		}
	}
	if err := o.Validate(); err != nil {
		return Options{}, err
	}

	label := quantities[qty]
	o.CenterName = CenterName(o.Center)
	o.Name = label.name
	o.XLabel = label.name + " " + label.unit
	o.SortAscending = label.sortAscending

	o.FigName = string(qty)
	if o.Center != "" {
		o.FigName = o.Center + "_" + string(qty)
	}

	var domainLabel string
	if o.Domain != "" {
		domainLabel = o.Domain + ","
	}
	o.Title = fmt.Sprintf("%s 24h Observation Impact Summary\n%s %s\n%s",
		o.CenterName, domainLabel, o.CycleLabel(), o.XLabel)

	return o, nil
}

// CycleLabel formats the cycles as "00Z 12Z".
func (o Options) CycleLabel() string {
	if len(o.Cycles) == 0 {
		return defaultCycleLabel
	}
	parts := make([]string, len(o.Cycles))
	for i, c := range o.Cycles {
		parts[i] = fmt.Sprintf("%02dZ", c)
	}
	return strings.Join(parts, " ")
}

// Validate reports an unknown quantity or an unusable colour scale.
func (o Options) Validate() error {
	if _, ok := quantities[o.Quantity]; !ok {
		return usageError("unknown quantity %q", o.Quantity)
	}
	if o.Alpha < 0 || o.Alpha > 1 {
		return usageError("alpha %g outside [0, 1]", o.Alpha)
	}
	if o.LogScale && o.CMin <= 0 {
		return usageError("log colour scale needs cmin > 0, got %g", o.CMin)
	}
	if o.CMax <= o.CMin {
		return usageError("cmax %g must exceed cmin %g", o.CMax, o.CMin)
	}
	for _, c := range o.Cycles {
		if c < 0 || c > 23 {
			return usageError("cycle hour %d outside 0..23", c)
		}
	}
	return nil
}

func usageError(format string, args ...any) error {
	return &domain.UsageError{Op: "plot options", Msg: fmt.Sprintf(format, args...)}
}
