package library

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Shimi9999/bmschart"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var ErrRootNotFound = errors.New("library root not found")

type State int

const (
	StateIdle State = iota
	StateScanning
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StateCancelled:
		return "cancelled"
	}
	return "idle"
}

type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeCancelled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	}
	return "completed"
}

// FileError records a chart that could not be read during a scan.
type FileError struct {
	Path string
	Err  error
}

type Result struct {
	ID      uuid.UUID
	Outcome Outcome
	Songs   int
	Charts  int
	// Reused counts charts taken from the previous cache, Parsed the ones
	// that went through the metadata pass.
	Reused   int
	Parsed   int
	Failures []FileError
	Err      error
}

type Progress struct {
	ID       uuid.UUID
	Fraction float64
	Status   string
}

type Config struct {
	Encodings []string
	// VerifyHashes rehashes every chart even when size and modification
	// time are unchanged.
	VerifyHashes bool
	// GraceWait is how long Start waits for a cancelled scan to stop.
	GraceWait  time.Duration
	Logger     *zap.Logger
	OnProgress func(Progress)
}

func DefaultConfig() Config {
	return Config{
		Encodings: bmschart.DefaultEncodings,
		GraceWait: 100 * time.Millisecond,
		Logger:    zap.NewNop(),
	}
}

// Scanner walks a root directory and rebuilds the library of a Store.
// Only one scan runs at a time; starting a new one cancels the previous.
type Scanner struct {
	store  *Store
	config Config
	logger *zap.Logger

	mu       sync.Mutex
	state    State
	progress Progress
	current  uuid.UUID
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewScanner(store *Store, config Config) *Scanner {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{store: store, config: config, logger: logger}
}

// Start begins scanning root in the background. The returned channel
// receives exactly one Result.
func (s *Scanner) Start(ctx context.Context, root string) <-chan Result {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		done := s.done
		s.mu.Unlock()

		timer := time.NewTimer(s.config.GraceWait)
		select {
		case <-done:
		case <-timer.C:
		}
		timer.Stop()
		s.mu.Lock()
	}

	id := uuid.New()
	jobCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.current = id
	s.cancel = cancel
	s.done = done
	s.state = StateScanning
	s.progress = Progress{ID: id, Status: "Scanning folders..."}
	s.mu.Unlock()

	out := make(chan Result, 1)
	go func() {
		defer close(out)
		res := s.run(jobCtx, id, root)
		cancel()

		s.mu.Lock()
		if s.current == id {
			s.state = StateIdle
			if res.Outcome == OutcomeCancelled {
				s.state = StateCancelled
			}
			s.cancel = nil
			s.done = nil
		}
		s.mu.Unlock()

		close(done)
		out <- res
	}()
	return out
}

// Scan runs a scan and waits for its result.
func (s *Scanner) Scan(ctx context.Context, root string) Result {
	return <-s.Start(ctx, root)
}

func (s *Scanner) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scanner) Status() string {
	return s.Progress().Status
}

func (s *Scanner) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

func (s *Scanner) report(id uuid.UUID, fraction float64, status string) {
	s.mu.Lock()
	if s.current != id {
		s.mu.Unlock()
		return
	}
	if fraction < s.progress.Fraction {
		fraction = s.progress.Fraction
	}
	s.progress = Progress{ID: id, Fraction: fraction, Status: status}
	p := s.progress
	s.mu.Unlock()

	if s.config.OnProgress != nil {
		s.config.OnProgress(p)
	}
}

func (s *Scanner) run(ctx context.Context, id uuid.UUID, root string) (res Result) {
	res.ID = id
	res.Failures = make([]FileError, 0)
	log := s.logger.With(zap.String("scan", id.String()))
	defer func() {
		if res.Outcome == OutcomeCancelled {
			s.report(id, 1, "Scan cancelled")
			log.Info("scan cancelled")
		}
	}()

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		res.Outcome = OutcomeFailed
		res.Err = errors.Wrap(ErrRootNotFound, root)
		s.report(id, 1, "Error: root not found")
		log.Error("library root not found", zap.String("root", root))
		return res
	}

	folders, files, err := s.collect(ctx, root)
	if err != nil {
		if ctx.Err() != nil {
			res.Outcome = OutcomeCancelled
			return res
		}
		res.Outcome = OutcomeFailed
		res.Err = err
		s.report(id, 1, "Scan error: "+err.Error())
		log.Error("walk failed", zap.String("root", root), zap.Error(err))
		return res
	}

	total := 0
	for _, folder := range folders {
		total += len(files[folder])
	}
	if total == 0 {
		s.report(id, 0, "No chart files found")
	} else {
		s.report(id, 0, fmt.Sprintf("Found %d chart files, parsing...", total))
	}
	log.Info("scan started", zap.String("root", root), zap.Int("charts", total), zap.Int("folders", len(folders)))

	lib := NewLibraryCache(root)
	lib.LastScanTime = time.Now()
	lib.ScanID = id.String()

	for i, folder := range folders {
		if ctx.Err() != nil {
			res.Outcome = OutcomeCancelled
			return res
		}
		song := s.scanFolder(ctx, log, folder, files[folder], &res)
		if len(song.Charts) > 0 {
			lib.Songs = append(lib.Songs, song)
		}
		s.report(id, float64(i+1)/float64(len(folders)),
			fmt.Sprintf("Parsing... %d/%d folders", i+1, len(folders)))
	}
	if ctx.Err() != nil {
		res.Outcome = OutcomeCancelled
		return res
	}

	s.mu.Lock()
	current := s.current == id
	s.mu.Unlock()
	if !current {
		res.Outcome = OutcomeCancelled
		return res
	}

	s.store.Replace(lib)
	if err := s.store.Save(); err != nil {
		res.Err = err
		log.Error("save library cache", zap.Error(err))
	}

	res.Outcome = OutcomeCompleted
	res.Songs = len(lib.Songs)
	res.Charts = lib.TotalCharts()
	s.report(id, 1, fmt.Sprintf("Scan complete: %d songs, %d charts", res.Songs, res.Charts))
	log.Info("scan complete",
		zap.Int("songs", res.Songs),
		zap.Int("charts", res.Charts),
		zap.Int("reused", res.Reused),
		zap.Int("parsed", res.Parsed),
		zap.Int("failed", len(res.Failures)))
	return res
}

// collect walks root and groups chart files by folder, keeping walk order.
func (s *Scanner) collect(ctx context.Context, root string) ([]string, map[string][]string, error) {
	var folders []string
	files := make(map[string][]string)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			s.logger.Debug("skip unreadable entry", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !bmschart.IsBmsPath(path) {
			return nil
		}

		folder := filepath.Dir(path)
		if _, ok := files[folder]; !ok {
			folders = append(folders, folder)
		}
		files[folder] = append(files[folder], path)
		return nil
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "walk library root")
	}
	return folders, files, nil
}

func (s *Scanner) scanFolder(ctx context.Context, log *zap.Logger, folder string, paths []string, res *Result) SongCacheEntry {
	song := SongCacheEntry{
		FolderPath: folder,
		Charts:     make([]ChartCacheEntry, 0, len(paths)),
	}
	if info, err := os.Stat(folder); err == nil {
		song.LastModified = info.ModTime()
	}

	for _, path := range paths {
		if ctx.Err() != nil {
			return song
		}

		entry, reused, err := s.chartEntry(path)
		if err != nil {
			log.Warn("failed to read chart", zap.String("path", path), zap.Error(err))
			res.Failures = append(res.Failures, FileError{Path: path, Err: err})
			continue
		}
		if reused {
			res.Reused++
		} else {
			res.Parsed++
		}

		if len(song.Charts) == 0 {
			song.Title = songTitle(entry)
			song.Artist = entry.Artist
			song.Genre = entry.Genre
		}
		song.Charts = append(song.Charts, entry)
	}
	if len(song.Charts) == 0 {
		return song
	}

	fillDifficulties(song.Charts)

	var banner, stageFile string
	for _, c := range song.Charts {
		if banner == "" {
			banner = c.Banner
		}
		if stageFile == "" {
			stageFile = c.StageFile
		}
	}
	song.BannerPath = findImageFile(folder, banner, bannerNames...)
	song.StageFilePath = findImageFile(folder, stageFile, stageFileNames...)
	return song
}

// chartEntry returns the cache entry for path, reusing the previous scan's
// entry when the file is unchanged. The second result reports reuse.
func (s *Scanner) chartEntry(path string) (ChartCacheEntry, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ChartCacheEntry{}, false, errors.Wrap(err, "stat chart")
	}

	prev, ok := s.store.Get(path)
	if ok && !s.config.VerifyHashes && prev.Unchanged(info.Size(), info.ModTime()) {
		return prev, true, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return ChartCacheEntry{}, false, errors.Wrap(err, "read chart")
	}

	if ok && prev.MD5 != "" {
		md5, sha256 := bmschart.FileHash(raw)
		if md5 == prev.MD5 {
			prev.SHA256 = sha256
			prev.FileSize = info.Size()
			prev.LastModified = info.ModTime()
			return prev, true, nil
		}
	}

	entry, err := ParseChartMetadata(path, raw, s.config.Encodings)
	if err != nil {
		return entry, false, err
	}
	entry.FileSize = info.Size()
	entry.LastModified = info.ModTime()
	return entry, false, nil
}

// fillDifficulties guesses the tier of charts that still have none from the
// file names of their siblings.
func fillDifficulties(charts []ChartCacheEntry) {
	paths := make([]string, len(charts))
	missing := false
	for i, c := range charts {
		paths[i] = c.FileName
		if c.Difficulty == 0 {
			missing = true
		}
	}
	if !missing {
		return
	}

	difs := bmschart.DifficultiesFromFileNames(paths)
	for i := range difs {
		if charts[i].Difficulty == 0 {
			charts[i].Difficulty = difs[i]
		}
	}
}

func songTitle(entry ChartCacheEntry) string {
	if title := bmschart.RemoveSuffixChartName(entry.Title); title != "" {
		return title
	}
	return filepath.Base(entry.FolderPath)
}
