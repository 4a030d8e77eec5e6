package library

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

type location struct {
	song, chart int
}

// Store holds the current library in memory and owns its cache document.
// Readers get snapshots; a scan publishes a new document with Replace.
type Store struct {
	dir string

	mu     sync.RWMutex
	lib    *LibraryCache
	byPath map[string]location
	byHash map[string]location
}

func NewStore(dir string) *Store {
	s := &Store{dir: dir}
	s.index(NewLibraryCache(""))
	return s
}

// CachePath is where the document for root is kept.
func (s *Store) CachePath(root string) string {
	return filepath.Join(s.dir, CacheFileName(root))
}

// Open loads the document for root. On any failure the store still ends up
// holding an empty library for root and the error is only informational.
func (s *Store) Open(root string) error {
	lib, err := LoadLibraryCache(s.CachePath(root))
	if err != nil {
		s.Replace(NewLibraryCache(root))
		return err
	}
	if lib.RootPath == "" {
		lib.RootPath = root
	}
	s.Replace(lib)
	return nil
}

// Library returns the current document. Callers must not modify it.
func (s *Store) Library() *LibraryCache {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lib
}

func (s *Store) Replace(lib *LibraryCache) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index(lib)
}

func (s *Store) index(lib *LibraryCache) {
	byPath := make(map[string]location)
	byHash := make(map[string]location)
	for i, song := range lib.Songs {
		for j, chart := range song.Charts {
			loc := location{i, j}
			byPath[filepath.Clean(chart.Path())] = loc
			if chart.MD5 != "" {
				byHash[strings.ToLower(chart.MD5)] = loc
			}
		}
	}
	s.lib = lib
	s.byPath = byPath
	s.byHash = byHash
}

func (s *Store) Save() error {
	lib := s.Library()
	if lib.RootPath == "" {
		return errors.New("library has no root")
	}
	return lib.Save(s.CachePath(lib.RootPath))
}

func (s *Store) Get(path string) (ChartCacheEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, ok := s.byPath[filepath.Clean(path)]
	if !ok {
		return ChartCacheEntry{}, false
	}
	return s.lib.Songs[loc.song].Charts[loc.chart], true
}

func (s *Store) GetByHash(md5 string) (ChartCacheEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, ok := s.byHash[strings.ToLower(md5)]
	if !ok {
		return ChartCacheEntry{}, false
	}
	return s.lib.Songs[loc.song].Charts[loc.chart], true
}

// Upsert replaces the entry with the same path, or appends it to the song of
// its folder (creating the song when needed). The published document is
// never modified in place.
func (s *Store) Upsert(entry ChartCacheEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lib := *s.lib
	lib.Songs = slices.Clone(s.lib.Songs)

	if loc, ok := s.byPath[filepath.Clean(entry.Path())]; ok {
		song := &lib.Songs[loc.song]
		song.Charts = slices.Clone(song.Charts)
		song.Charts[loc.chart] = entry
		s.index(&lib)
		return
	}

	folder := filepath.Clean(entry.FolderPath)
	i := slices.IndexFunc(lib.Songs, func(song SongCacheEntry) bool {
		return filepath.Clean(song.FolderPath) == folder
	})
	if i < 0 {
		lib.Songs = append(lib.Songs, SongCacheEntry{
			FolderPath: entry.FolderPath,
			Title:      songTitle(entry),
			Artist:     entry.Artist,
			Genre:      entry.Genre,
			Charts:     []ChartCacheEntry{entry},
		})
	} else {
		song := &lib.Songs[i]
		song.Charts = append(slices.Clone(song.Charts), entry)
	}
	s.index(&lib)
}
