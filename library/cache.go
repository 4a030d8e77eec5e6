package library

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// CacheVersion is the document format written by this package.
// 1: first layout, charts identified by "md5Hash".
// 2: "md5" + "sha256", chart difficulty and header image fields, scan id.
const CacheVersion = 2

var ErrUnsupportedVersion = errors.New("cache document version is newer than supported")

// ChartCacheEntry is the lightweight record of one chart file.
type ChartCacheEntry struct {
	FileName     string    `json:"fileName"`
	FolderPath   string    `json:"folderPath"`
	Title        string    `json:"title"`
	Subtitle     string    `json:"subTitle"`
	Artist       string    `json:"artist"`
	Subartist    string    `json:"subArtist"`
	Genre        string    `json:"genre"`
	StageFile    string    `json:"stageFile,omitempty"`
	Banner       string    `json:"banner,omitempty"`
	PlayLevel    int       `json:"playLevel"`
	Difficulty   int       `json:"difficulty"`
	Rank         int       `json:"rank"`
	Total        float64   `json:"total"`
	BPM          float64   `json:"bpm"`
	MinBPM       float64   `json:"minBpm"`
	MaxBPM       float64   `json:"maxBpm"`
	KeyCount     int       `json:"keyCount"`
	HasScratch   bool      `json:"hasScratch"`
	HasLongNotes bool      `json:"hasLongNotes"`
	TotalNotes   int       `json:"totalNotes"`
	Duration     float64   `json:"duration"` // ms, estimated
	Samples      []string  `json:"keysoundFiles"`
	MD5          string    `json:"md5"`
	SHA256       string    `json:"sha256"`
	FileSize     int64     `json:"fileSize"`
	LastModified time.Time `json:"lastModified"`
}

func NewChartCacheEntry() ChartCacheEntry {
	var e ChartCacheEntry
	e.Rank = 2
	e.Total = 100
	e.BPM = 130
	e.KeyCount = 7
	e.Samples = make([]string, 0)
	return e
}

// UnmarshalJSON starts from the constructor defaults so fields missing from
// older documents keep sensible values.
func (e *ChartCacheEntry) UnmarshalJSON(b []byte) error {
	type plain ChartCacheEntry
	p := plain(NewChartCacheEntry())
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*e = ChartCacheEntry(p)
	if e.Samples == nil {
		e.Samples = make([]string, 0)
	}
	return nil
}

func (e ChartCacheEntry) Path() string {
	return filepath.Join(e.FolderPath, e.FileName)
}

// Unchanged reports whether size and modification time still match, in
// which case the stored hashes are trusted without reading the file.
func (e ChartCacheEntry) Unchanged(size int64, modTime time.Time) bool {
	return e.MD5 != "" && e.SHA256 != "" &&
		e.FileSize == size && e.LastModified.Equal(modTime)
}

// SongCacheEntry groups the charts of one folder.
type SongCacheEntry struct {
	FolderPath    string            `json:"folderPath"`
	Title         string            `json:"title"`
	Artist        string            `json:"artist"`
	Genre         string            `json:"genre"`
	Charts        []ChartCacheEntry `json:"charts"`
	LastModified  time.Time         `json:"lastModified"`
	BannerPath    string            `json:"bannerPath,omitempty"`
	StageFilePath string            `json:"stageFilePath,omitempty"`
}

type LibraryCache struct {
	Version      int              `json:"version"`
	RootPath     string           `json:"rootPath"`
	LastScanTime time.Time        `json:"lastScanTime"`
	ScanID       string           `json:"scanId,omitempty"`
	Songs        []SongCacheEntry `json:"songs"`
}

func NewLibraryCache(root string) *LibraryCache {
	return &LibraryCache{
		Version:  CacheVersion,
		RootPath: root,
		Songs:    make([]SongCacheEntry, 0),
	}
}

func (c *LibraryCache) TotalCharts() int {
	count := 0
	for _, song := range c.Songs {
		count += len(song.Charts)
	}
	return count
}

// CacheFileName is the document name used for a scanned root.
func CacheFileName(root string) string {
	sum := sha1.Sum([]byte(filepath.Clean(root)))
	return "library-" + hex.EncodeToString(sum[:])[:16] + ".json"
}

// LoadLibraryCache reads a cache document. Any error means "no cache".
func LoadLibraryCache(path string) (*LibraryCache, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read cache")
	}

	var head struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return nil, errors.Wrap(err, "parse cache")
	}
	if head.Version > CacheVersion {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %d", head.Version)
	}

	c := NewLibraryCache("")
	if err := json.Unmarshal(b, c); err != nil {
		return nil, errors.Wrap(err, "parse cache")
	}
	if c.Version < 2 {
		if err := migrateV1(b, c); err != nil {
			return nil, err
		}
	}
	c.Version = CacheVersion
	if c.Songs == nil {
		c.Songs = make([]SongCacheEntry, 0)
	}
	return c, nil
}

func migrateV1(b []byte, c *LibraryCache) error {
	var v1 struct {
		Songs []struct {
			Charts []struct {
				MD5Hash string `json:"md5Hash"`
			} `json:"charts"`
		} `json:"songs"`
	}
	if err := json.Unmarshal(b, &v1); err != nil {
		return errors.Wrap(err, "migrate cache v1")
	}
	for i := range c.Songs {
		if i >= len(v1.Songs) {
			break
		}
		for j := range c.Songs[i].Charts {
			if j >= len(v1.Songs[i].Charts) {
				break
			}
			if c.Songs[i].Charts[j].MD5 == "" {
				c.Songs[i].Charts[j].MD5 = strings.ToLower(v1.Songs[i].Charts[j].MD5Hash)
			}
		}
	}
	return nil
}

// Save writes the whole document, replacing path atomically.
func (c *LibraryCache) Save(path string) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode cache")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "create cache dir")
	}
	tmp, err := os.CreateTemp(dir, ".library-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp cache")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write cache")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "write cache")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "replace cache")
}
