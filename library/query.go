package library

import (
	"strings"

	"golang.org/x/exp/slices"
)

// Songs returns the songs whose title, artist or genre contains filter,
// ignoring case, ordered by title. An empty filter matches every song.
func (s *Store) Songs(filter string) []SongCacheEntry {
	lib := s.Library()
	filter = strings.ToLower(strings.TrimSpace(filter))

	songs := make([]SongCacheEntry, 0, len(lib.Songs))
	for _, song := range lib.Songs {
		if filter == "" ||
			strings.Contains(strings.ToLower(song.Title), filter) ||
			strings.Contains(strings.ToLower(song.Artist), filter) ||
			strings.Contains(strings.ToLower(song.Genre), filter) {
			songs = append(songs, song)
		}
	}
	slices.SortStableFunc(songs, func(a, b SongCacheEntry) bool {
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	})
	return songs
}

// Charts returns every chart of the library in song order.
func (s *Store) Charts() []ChartCacheEntry {
	lib := s.Library()
	charts := make([]ChartCacheEntry, 0, lib.TotalCharts())
	for _, song := range lib.Songs {
		charts = append(charts, song.Charts...)
	}
	return charts
}

// SortChartsByLevel orders charts by difficulty tier, then play level, then
// file name.
func SortChartsByLevel(charts []ChartCacheEntry) {
	slices.SortStableFunc(charts, func(a, b ChartCacheEntry) bool {
		if a.Difficulty != b.Difficulty {
			return a.Difficulty < b.Difficulty
		}
		if a.PlayLevel != b.PlayLevel {
			return a.PlayLevel < b.PlayLevel
		}
		return a.FileName < b.FileName
	})
}
