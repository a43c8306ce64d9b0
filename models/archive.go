// models/archive.go
package models

import (
	"encoding/json"
	"time"
)

// Dataset is one entry of datasets.json. Raw keeps the complete upstream object so the
// manifest can be served without losing fields this service does not model.
type Dataset struct {
	UUID      string          `json:"uuid"`
	DirParent string          `json:"dir_parent"`
	DirFile   string          `json:"dir_file"`
	Raw       json.RawMessage `json:"-"`
}

// Manifest is the flattened dataset manifest, keyed by UUID. Order lists the UUIDs sorted.
type Manifest struct {
	Datasets map[string]Dataset
	Order    []string
}

// Lookup returns the dataset with the given UUID.
func (m *Manifest) Lookup(uuid string) (Dataset, bool) {
	if m == nil {
		return Dataset{}, false
	}
	d, ok := m.Datasets[uuid]
	return d, ok
}

// FileIndexRow is one row of archive/file_index.csv as published upstream.
type FileIndexRow struct {
	UUID          string `csv:"uuid"`
	FileName      string `csv:"file_name"`
	FileTimestamp string `csv:"file_timestamp"`
	FileDate      string `csv:"file_date"`
	FileDuplicate int    `csv:"file_duplicate"`
	FileMD5       string `csv:"file_md5"`
	FileSize      int64  `csv:"file_size"`
}

// ArchiveFile is a file index row enriched with manifest directories, its public URL and
// whether it is the last unique capture of its day. Field order is the output projection.
type ArchiveFile struct {
	UUID             string  `csv:"uuid" json:"uuid"`
	DirParent        string  `csv:"dir_parent" json:"dir_parent"`
	DirFile          string  `csv:"dir_file" json:"dir_file"`
	FileName         string  `csv:"file_name" json:"file_name"`
	FileTimestamp    string  `csv:"file_timestamp" json:"file_timestamp"`
	FileDate         string  `csv:"file_date" json:"file_date"`
	FileDuplicate    int     `csv:"file_duplicate" json:"file_duplicate"`
	FileFinalForDate int     `csv:"file_final_for_date" json:"file_final_for_date"`
	FileMD5          string  `csv:"file_md5" json:"file_md5"`
	FileSize         int64   `csv:"file_size" json:"file_size"`
	FileURL          *string `csv:"file_url" json:"file_url"`

	Timestamp time.Time `csv:"-" json:"-"`
}

// IsDuplicate reports whether the file repeats the content of an earlier capture.
func (f ArchiveFile) IsDuplicate() bool { return f.FileDuplicate != 0 }

// IsFinalForDate reports whether the file is the last unique capture of its day.
func (f ArchiveFile) IsFinalForDate() bool { return f.FileFinalForDate != 0 }

// ArchiveIndex is the built archive table, ordered as the file index lists it and grouped
// by UUID for lookups.
type ArchiveIndex struct {
	Files  []ArchiveFile
	byUUID map[string][]int
}

// NewArchiveIndex indexes files by UUID.
func NewArchiveIndex(files []ArchiveFile) *ArchiveIndex {
	idx := &ArchiveIndex{Files: files, byUUID: make(map[string][]int)}
	for i, f := range files {
		idx.byUUID[f.UUID] = append(idx.byUUID[f.UUID], i)
	}
	return idx
}

// ForUUID returns the files of one dataset, in index order.
func (a *ArchiveIndex) ForUUID(uuid string) []ArchiveFile {
	positions := a.byUUID[uuid]
	out := make([]ArchiveFile, 0, len(positions))
	for _, i := range positions {
		out = append(out, a.Files[i])
	}
	return out
}

// ArchiveData is the payload of the archive source: the manifest it was built against
// plus the enriched index.
type ArchiveData struct {
	Manifest *Manifest
	Index    *ArchiveIndex
}
