// Command genmock writes synthetic ASCII impact files for local runs and
// tests. Platform names are drawn from each center's raw identifiers so the
// files exercise platform grouping.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock \
//	  -centers GMAO,NRL \
//	  -start 2020010100 -end 2020010700 \
//	  -records 2000 -seed 1
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/couchcryptid/fsoi-stats/internal/adapter/source"
	"github.com/couchcryptid/fsoi-stats/internal/domain"
	"github.com/couchcryptid/fsoi-stats/internal/pipeline"
	"github.com/couchcryptid/fsoi-stats/internal/taxonomy"
)

// platformProfile shapes the synthetic records of one raw platform.
type platformProfile struct {
	raw      string
	obtype   string
	channels int
	surface  bool
	weight   float64 // relative share of records
	scale    float64 // impact magnitude
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory; files are written as <center>/<YYYYMMDDHH>.txt")
	centersFlag := flag.String("centers", "GMAO,NRL", "comma-separated centers")
	startFlag := flag.String("start", "", "first cycle, YYYYMMDDHH")
	endFlag := flag.String("end", "", "last cycle, YYYYMMDDHH (defaults to -start)")
	cyclesFlag := flag.String("cycles", "0", "comma-separated cycle hours")
	records := flag.Int("records", 1000, "records per file")
	benFrac := flag.Float64("beneficial", 0.6, "probability that a record reduces forecast error")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *out == "" || *startFlag == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -out, -start")
	}
	if *records <= 0 || *benFrac < 0 || *benFrac > 1 {
		return fmt.Errorf("-records must be positive and -beneficial within [0, 1]")
	}

	start, err := pipeline.ParseCycle(*startFlag)
	if err != nil {
		return err
	}
	end := start
	if *endFlag != "" {
		if end, err = pipeline.ParseCycle(*endFlag); err != nil {
			return err
		}
	}
	cycles, err := parseHours(*cyclesFlag)
	if err != nil {
		return err
	}
	dates, err := pipeline.CycleDates(start, end, cycles)
	if err != nil {
		return err
	}

	catalog, err := taxonomy.Embedded()
	if err != nil {
		return err
	}
	logger := slog.Default()

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	var (
		files int
		total int
	)
	for _, center := range strings.Split(*centersFlag, ",") {
		center = strings.TrimSpace(center)
		profiles := profilesFor(catalog, center, logger)
		for _, date := range dates {
			path := filepath.Join(*out, source.CyclePath(center, date))
			n, err := writeFile(path, rng, profiles, *records, *benFrac)
			if err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			files++
			total += n
		}
		log.Printf("%s: %d cycles, %d platforms", center, len(dates), len(profiles))
	}

	log.Printf("wrote %s files, %s records to %s", humanize.Comma(int64(files)), humanize.Comma(int64(total)), *out)
	return nil
}

func parseHours(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		h, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || h < 0 || h > 23 {
			return nil, fmt.Errorf("invalid cycle hour %q", part)
		}
		out = append(out, h)
	}
	return out, nil
}

// profilesFor picks one raw identifier per canonical platform, preferring the
// center's own spelling.
func profilesFor(catalog *taxonomy.Catalog, center string, logger *slog.Logger) []platformProfile {
	merged := catalog.ForCenter(center, logger)
	centerOnly := catalog.Platforms(center, logger)
	var out []platformProfile
	for _, name := range merged.Names() {
		raw := merged.Raw(name)
		if own := centerOnly.Raw(name); len(own) > 0 {
			raw = own
		}
		if len(raw) == 0 {
			continue
		}
		out = append(out, profileOf(name, raw[0]))
	}
	slices.SortFunc(out, func(a, b platformProfile) int { return strings.Compare(a.raw, b.raw) })
	return out
}

var conventional = []string{
	"Radiosonde", "Dropsonde", "Ship", "Buoy", "Land Surface", "Aircraft", "PIBAL", "GPSRO",
	"Profiler Wind", "NEXRAD Wind", "Geo Wind", "MODIS Wind", "AVHRR Wind", "ASCAT Wind",
	"RAPIDSCAT Wind", "Synthetic", "R/S AMV", "Aus Syn", "UAS", "Ground GPS",
}

func profileOf(name, raw string) platformProfile {
	if slices.Contains(conventional, name) {
		return platformProfile{raw: raw, obtype: "u", channels: 1, surface: true, weight: 1, scale: 2e-3}
	}
	return platformProfile{raw: raw, obtype: "tb", channels: 15, weight: 3, scale: 5e-4}
}

func writeFile(path string, rng *rand.Rand, profiles []platformProfile, n int, benFrac float64) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var weights float64
	for _, p := range profiles {
		weights += p.weight
	}

	w := bufio.NewWriter(f)
	written := 0
	for _, p := range profiles {
		count := int(math.Round(float64(n) * p.weight / weights))
		for range count {
			rec := synthesize(rng, p, benFrac)
			fmt.Fprintf(w, "%-20s %-4s %4d %10.4f %10.4f %10.3f %14.6e %12.5f %12.5f\n",
				rec.Platform, rec.ObType, rec.Channel,
				rec.Longitude, rec.Latitude, rec.Pressure,
				rec.Impact, rec.OMF, rec.ObErr)
			written++
		}
	}
	if err := w.Flush(); err != nil {
		return 0, err
	}
	return written, f.Close()
}

func synthesize(rng *rand.Rand, p platformProfile, benFrac float64) domain.Record {
	rec := domain.Record{
		Key: domain.Key{
			Platform: p.raw,
			ObType:   p.obtype,
			Channel:  rng.IntN(p.channels) + 1,
		},
		Longitude: rng.Float64()*360 - 180,
		Latitude:  rng.Float64()*180 - 90,
		Pressure:  -999,
		OMF:       rng.NormFloat64(),
		ObErr:     0.5 + rng.Float64(),
	}
	if p.channels == 1 {
		rec.Channel = 0
	}
	if p.surface {
		rec.Pressure = 100 + rng.Float64()*900
	}

	mag := rng.ExpFloat64() * p.scale
	if rng.Float64() < benFrac {
		mag = -mag
	}
	rec.Impact = mag
	return rec
}
