package partition

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ManifestName is the file written next to the partitions of a directory.
const ManifestName = "index.json"

// Mode names a partitioning scheme.
type Mode string

const (
	ModeYear    Mode = "year"
	ModeWeek    Mode = "week"
	ModeColumns Mode = "columns"
)

// IndexEntry maps one date to the partition file holding it.
type IndexEntry struct {
	Date string `json:"date"`
	File string `json:"file"`
}

// Manifest describes one partitioning run of a directory. Index is sorted by
// date and holds each date once.
type Manifest struct {
	RunID       string       `json:"runId"`
	Mode        Mode         `json:"mode"`
	GeneratedAt time.Time    `json:"generatedAt"`
	Files       []string     `json:"files"`
	Index       []IndexEntry `json:"index"`
}

// Locate returns the partition file that holds date.
func (m *Manifest) Locate(date string) (string, bool) {
	i := sort.Search(len(m.Index), func(i int) bool {
		return m.Index[i].Date >= date
	})
	if i < len(m.Index) && m.Index[i].Date == date {
		return m.Index[i].File, true
	}
	return "", false
}

// buildIndex flattens groups into a sorted date index. For repeated dates the
// first occurrence wins, matching a top-down scan of the master.
func buildIndex(groups []Group, fileName func(Group) string) []IndexEntry {
	var entries []IndexEntry
	for _, g := range groups {
		name := fileName(g)
		for _, row := range g.Rows {
			entries = append(entries, IndexEntry{Date: row.Date, File: name})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date < entries[j].Date
	})

	out := entries[:0]
	for i, e := range entries {
		if i > 0 && e.Date == entries[i-1].Date {
			continue
		}
		out = append(out, e)
	}
	return out
}

// LoadManifest reads the manifest of dir. The boolean is false when the
// directory has never been partitioned.
func LoadManifest(dir string) (*Manifest, bool, error) {
	b, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, false, fmt.Errorf("decode manifest %s: %w", filepath.Join(dir, ManifestName), err)
	}
	return &m, true, nil
}

func writeManifest(dir string, m *Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+ManifestName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close manifest: %w", err)
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, ManifestName))
}
