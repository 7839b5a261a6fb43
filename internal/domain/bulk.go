package domain

import (
	"encoding/json"
	"slices"
)

// DefaultThreshold separates neutral impacts from beneficial/detrimental ones.
const DefaultThreshold = 1e-10

// BulkRow holds the spatially collapsed statistics of one key.
// ObCntBen+ObCntNeu never exceeds ObCnt.
type BulkRow struct {
	Key
	TotImp   float64 `json:"TotImp"`
	ObCnt    int     `json:"ObCnt"`
	ObCntBen int     `json:"ObCntBen"`
	ObCntNeu int     `json:"ObCntNeu"`
}

func (r *BulkRow) add(o BulkRow) {
	r.TotImp += o.TotImp
	r.ObCnt += o.ObCnt
	r.ObCntBen += o.ObCntBen
	r.ObCntNeu += o.ObCntNeu
}

// BulkTable is an immutable set of BulkRows ordered by key.
type BulkTable struct {
	rows []BulkRow
}

// NewBulkTable copies rows into a BulkTable, sorted by key.
func NewBulkTable(rows ...BulkRow) BulkTable {
	out := make([]BulkRow, len(rows))
	for i, r := range rows {
		r.DateTime = normalizeTime(r.DateTime)
		out[i] = r
	}
	sortBulk(out)
	return BulkTable{rows: out}
}

// Len returns the number of rows.
func (b BulkTable) Len() int { return len(b.rows) }

// Rows returns a copy of the rows.
func (b BulkTable) Rows() []BulkRow { return slices.Clone(b.rows) }

// Lookup returns the row for k, if present.
func (b BulkTable) Lookup(k Key) (BulkRow, bool) {
	k.DateTime = normalizeTime(k.DateTime)
	i, ok := slices.BinarySearchFunc(b.rows, k, func(r BulkRow, k Key) int { return r.Key.Compare(k) })
	if !ok {
		return BulkRow{}, false
	}
	return b.rows[i], true
}

// Totals sums all rows into a single row with an empty key.
func (b BulkTable) Totals() BulkRow {
	var t BulkRow
	for _, r := range b.rows {
		t.add(r)
	}
	return t
}

func (b BulkTable) MarshalJSON() ([]byte, error) {
	if b.rows == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(b.rows)
}

func (b *BulkTable) UnmarshalJSON(data []byte) error {
	var rows []BulkRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	*b = NewBulkTable(rows...)
	return nil
}

// BulkStats collapses longitude, latitude and pressure, producing one row per
// (cycle, platform, obtype, channel). Keys with no records do not appear.
func BulkStats(t Table, threshold float64) BulkTable {
	idx := make(map[Key]int)
	var out []BulkRow
	for _, rec := range t.records {
		i, ok := idx[rec.Key]
		if !ok {
			i = len(out)
			idx[rec.Key] = i
			out = append(out, BulkRow{Key: rec.Key})
		}
		row := &out[i]
		row.TotImp += rec.Impact
		row.ObCnt++
		switch {
		case rec.Impact < -threshold:
			row.ObCntBen++
		case -threshold < rec.Impact && rec.Impact < threshold:
			row.ObCntNeu++
		}
	}
	sortBulk(out)
	return BulkTable{rows: out}
}

// AccumBulkStats collapses obtype and channel, leaving one row per
// (cycle, platform).
func AccumBulkStats(b BulkTable) BulkTable {
	return regroup(b.rows, func(k Key) Key { return k.Prefix(LevelPlatform) })
}

// Renamer maps a raw platform identifier to its canonical name. Identifiers
// it does not know are returned unchanged.
type Renamer interface {
	Canonical(raw string) string
}

// GroupBulkStats renames platforms to their canonical names and then
// re-aggregates by (cycle, platform), merging platforms that share a
// canonical name. A nil Renamer only re-aggregates.
func GroupBulkStats(b BulkTable, names Renamer) BulkTable {
	return regroup(b.rows, func(k Key) Key {
		k = k.Prefix(LevelPlatform)
		if names != nil {
			k.Platform = names.Canonical(k.Platform)
		}
		return k
	})
}

func regroup(rows []BulkRow, keyFn func(Key) Key) BulkTable {
	idx := make(map[Key]int)
	var out []BulkRow
	for _, r := range rows {
		k := keyFn(r.Key)
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, BulkRow{Key: k})
		}
		out[i].add(r)
	}
	sortBulk(out)
	return BulkTable{rows: out}
}

func sortBulk(rows []BulkRow) {
	slices.SortFunc(rows, func(a, b BulkRow) int { return a.Key.Compare(b.Key) })
}
