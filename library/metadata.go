package library

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Shimi9999/bmschart"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	ErrBinaryFile = errors.New("binary file")
	ErrNotChart   = errors.New("no chart directives")
)

// ReadChartMetadata runs the lightweight metadata pass over the chart at
// path. Identity fields (hashes, size, modification time) are filled in.
func ReadChartMetadata(path string, encodings []string) (ChartCacheEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ChartCacheEntry{}, errors.Wrap(err, "stat chart")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return ChartCacheEntry{}, errors.Wrap(err, "read chart")
	}

	entry, err := ParseChartMetadata(path, raw, encodings)
	if err != nil {
		return entry, err
	}
	entry.FileSize = info.Size()
	entry.LastModified = info.ModTime()
	return entry, nil
}

// ParseChartMetadata extracts catalogue metadata from raw chart bytes without
// building the timeline. path is used for the file name, the folder and the
// key mode and difficulty heuristics. Errors do not repeat the path.
func ParseChartMetadata(path string, raw []byte, encodings []string) (ChartCacheEntry, error) {
	entry := NewChartCacheEntry()
	entry.FileName = filepath.Base(path)
	entry.FolderPath = filepath.Dir(path)

	if bytes.IndexByte(raw, 0) >= 0 {
		return entry, ErrBinaryFile
	}
	text, _, err := bmschart.DecodeText(raw, encodings)
	if err != nil {
		return entry, errors.Wrap(err, "decode text")
	}

	ctx := bmschart.NewDecoderContext()
	var m metadataCounter
	err = bmschart.ScanDirectives(strings.NewReader(text), func(d bmschart.Directive) {
		m.directives++
		switch d.Kind {
		case bmschart.HeaderDirective:
			ctx.Apply(d)
		case bmschart.ChannelDirective:
			m.channel(d)
		}
	})
	if err != nil {
		return entry, err
	}
	if m.directives == 0 {
		return entry, ErrNotChart
	}

	md := ctx.Metadata
	entry.Title = md.Title
	entry.Subtitle = md.Subtitle
	entry.Artist = md.Artist
	entry.Subartist = md.Subartist
	entry.Genre = md.Genre
	entry.StageFile = md.StageFile
	entry.Banner = md.Banner
	entry.PlayLevel = md.PlayLevel
	entry.Rank = md.Rank
	entry.Total = md.Total
	entry.BPM = md.InitialBPM

	entry.Difficulty = md.Difficulty
	if entry.Difficulty == 0 {
		entry.Difficulty = bmschart.DifficultyFromTitle(md.Title, md.Subtitle)
	}
	if entry.Difficulty == 0 {
		entry.Difficulty = bmschart.DifficultyFromPath(path)
	}

	bpms := append([]float64{entry.BPM}, m.bpms...)
	bpms = append(bpms, maps.Values(ctx.BPMs)...)
	entry.MinBPM, entry.MaxBPM = minMax(bpms)

	entry.KeyCount = m.keyMode(path)
	entry.HasScratch = m.scratch
	entry.HasLongNotes = m.longObjects > 0 || md.LNObj != ""
	entry.TotalNotes = m.tapObjects + m.longObjects/2
	if md.LNObj != "" {
		entry.TotalNotes -= m.tapCodes[md.LNObj]
	}
	if m.channels > 0 {
		entry.Duration = float64(m.maxMeasure+1) * 4 * 60000 / entry.BPM
	}

	files := make(map[string]struct{}, len(ctx.Samples))
	for _, file := range ctx.Samples {
		if file != "" {
			files[file] = struct{}{}
		}
	}
	entry.Samples = sortedKeys(files)

	entry.MD5, entry.SHA256 = bmschart.FileHash(raw)
	return entry, nil
}

type metadataCounter struct {
	directives int
	channels   int
	maxMeasure int

	tapObjects  int
	longObjects int
	scratch     bool
	// tap objects per code; LNOBJ end markers are not notes
	tapCodes map[string]int

	bpms []float64

	has7k, has10k, has14k bool
}

func (m *metadataCounter) channel(d bmschart.Directive) {
	m.channels++
	if d.Measure > m.maxMeasure {
		m.maxMeasure = d.Measure
	}

	ch := d.Channel
	switch {
	case (ch >= 18 && ch <= 19) || (ch >= 38 && ch <= 39) || (ch >= 58 && ch <= 59):
		m.has7k = true
	case (ch >= 21 && ch <= 26) || (ch >= 41 && ch <= 46) || (ch >= 61 && ch <= 66):
		m.has10k = true
	case (ch >= 28 && ch <= 29) || (ch >= 48 && ch <= 49) || (ch >= 68 && ch <= 69):
		m.has14k = true
	}

	codes := bmschart.SplitObjects(d.Data)
	switch {
	case ch == bmschart.ChannelBPM:
		for _, code := range codes {
			if v, err := strconv.ParseUint(code, 16, 8); err == nil && v > 0 {
				m.bpms = append(m.bpms, float64(v))
			}
		}
	case bmschart.IsNoteChannel(ch):
		n := 0
		for _, code := range codes {
			if code == "00" {
				continue
			}
			n++
			if !bmschart.IsLongNoteChannel(ch) {
				if m.tapCodes == nil {
					m.tapCodes = make(map[string]int)
				}
				m.tapCodes[code]++
			}
		}
		if n > 0 && bmschart.IsScratchChannel(ch) {
			m.scratch = true
		}
		if bmschart.IsLongNoteChannel(ch) {
			m.longObjects += n
		} else {
			m.tapObjects += n
		}
	}
}

func (m *metadataCounter) keyMode(path string) int {
	if bmschart.IsPmsPath(path) {
		return 9
	} else if m.has10k || m.has14k {
		if m.has7k || m.has14k {
			return 14
		}
		return 10
	} else if m.has7k {
		return 7
	}
	return 5
}

func minMax(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func sortedKeys[K constraints.Ordered, V any](m map[K]V) []K {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
