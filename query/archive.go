// query/archive.go
package query

import (
	"encoding/json"
	"strings"

	"github.com/opencovid/api/models"
	"github.com/opencovid/api/snapshot"
	"github.com/opencovid/api/utils"
)

// ArchiveOptions are the /archive parameters.
type ArchiveOptions struct {
	UUIDs                []string
	RemoveDuplicates     bool
	KeepOnlyFinalForDate bool
	// Date is all (the default), latest, first or a calendar date. An unparseable date
	// is ignored in favour of After and Before.
	Date   string
	After  string
	Before string
}

// Archive lists archived files of the requested datasets.
func Archive(snap *snapshot.Snapshot[*models.ArchiveData], q ArchiveOptions) ([]models.ArchiveFile, error) {
	if snap == nil || snap.Data == nil || snap.Data.Index == nil {
		return nil, ErrNotLoaded
	}
	uuids := utils.SplitList(q.UUIDs)
	if len(uuids) == 0 {
		return nil, ErrUUIDRequired
	}

	var groups [][]models.ArchiveFile
	total := 0
	for _, id := range uuids {
		files := snap.Data.Index.ForUUID(id)
		total += len(files)
		groups = append(groups, files)
	}
	if total == 0 {
		return nil, ErrUUIDNotFound
	}

	if q.KeepOnlyFinalForDate {
		for i, g := range groups {
			groups[i] = filterFiles(g, models.ArchiveFile.IsFinalForDate)
		}
	}

	date := strings.ToLower(strings.TrimSpace(q.Date))
	after, before := utils.ParseDate(q.After), utils.ParseDate(q.Before)
	exact := utils.ParseDate(date)

	var out []models.ArchiveFile
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		switch {
		case date == "latest":
			out = append(out, g[len(g)-1])
		case date == "first":
			out = append(out, g[0])
		case exact.OK:
			d := exact.Date.String()
			out = append(out, filterFiles(g, func(f models.ArchiveFile) bool { return f.FileDate == d })...)
		case date == "all" || (!after.OK && !before.OK):
			out = append(out, g...)
		default:
			out = append(out, filterFiles(g, func(f models.ArchiveFile) bool {
				if after.OK && f.FileDate < after.Date.String() {
					return false
				}
				if before.OK && f.FileDate > before.Date.String() {
					return false
				}
				return true
			})...)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoRecords
	}

	// Drop repeated content within the selected files. This differs from dropping rows
	// flagged as duplicates: the original of a duplicate may not be in the selection.
	if q.RemoveDuplicates {
		seen := make(map[string]bool, len(out))
		out = filterFiles(out, func(f models.ArchiveFile) bool {
			if seen[f.FileMD5] {
				return false
			}
			seen[f.FileMD5] = true
			return true
		})
	}
	return out, nil
}

func filterFiles(files []models.ArchiveFile, keep func(models.ArchiveFile) bool) []models.ArchiveFile {
	out := make([]models.ArchiveFile, 0, len(files))
	for _, f := range files {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

// DatasetEntries is an ordered UUID-keyed selection of the manifest, encoded as a JSON
// object of the upstream entries.
type DatasetEntries struct {
	Order   []string
	Entries map[string]json.RawMessage
}

func (d *DatasetEntries) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, id := range d.Order {
		if i > 0 {
			buf = append(buf, ',')
		}
		k, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		buf = append(buf, k...)
		buf = append(buf, ':')
		buf = append(buf, d.Entries[id]...)
	}
	return append(buf, '}'), nil
}

// Datasets returns manifest entries. With no UUIDs every entry is returned; otherwise
// every requested UUID must exist.
func Datasets(snap *snapshot.Snapshot[*models.Manifest], uuids []string) (*DatasetEntries, error) {
	if snap == nil || snap.Data == nil {
		return nil, ErrNotLoaded
	}
	m := snap.Data
	ids := utils.SplitList(uuids)
	if len(ids) == 0 {
		ids = m.Order
	}

	out := &DatasetEntries{Entries: make(map[string]json.RawMessage, len(ids))}
	for _, id := range ids {
		d, ok := m.Lookup(id)
		if !ok {
			return nil, ErrUUIDNotFound
		}
		if _, dup := out.Entries[id]; dup {
			continue
		}
		raw := d.Raw
		if len(raw) == 0 {
			b, err := json.Marshal(d)
			if err != nil {
				return nil, err
			}
			raw = b
		}
		out.Order = append(out.Order, id)
		out.Entries[id] = raw
	}
	return out, nil
}
