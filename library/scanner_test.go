package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestScanner(t *testing.T, config Config) (*Store, *Scanner) {
	t.Helper()
	store := NewStore(t.TempDir())
	config.Logger = nil
	return store, NewScanner(store, config)
}

func TestScanSkipsBrokenCharts(t *testing.T) {
	root := t.TempDir()
	song := filepath.Join(root, "artist", "song")
	writeChart(t, song, "good.bms", "#TITLE Song [NORMAL]", "#ARTIST someone", "#00111:01")
	require.NoError(t, os.WriteFile(filepath.Join(song, "broken.bms"), []byte("\x00\x01\x02garbage"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(song, "readme.txt"), []byte("#TITLE not a chart"), 0644))

	core, logs := observer.New(zapcore.DebugLevel)
	config := DefaultConfig()
	config.Logger = zap.New(core)
	store := NewStore(t.TempDir())
	scanner := NewScanner(store, config)
	res := scanner.Scan(context.Background(), root)

	assert := assert.New(t)
	assert.Equal(OutcomeCompleted, res.Outcome)
	assert.NoError(res.Err)
	assert.Equal(1, res.Songs)
	assert.Equal(1, res.Charts)
	assert.Equal(1, res.Parsed)
	require.Len(t, res.Failures, 1)
	assert.Equal(filepath.Join(song, "broken.bms"), res.Failures[0].Path)
	assert.True(errors.Is(res.Failures[0].Err, ErrBinaryFile))

	failed := logs.FilterMessage("failed to read chart").AllUntimed()
	require.Len(t, failed, 1)
	assert.Equal(zapcore.WarnLevel, failed[0].Level)
	fields := failed[0].ContextMap()
	assert.Equal(filepath.Join(song, "broken.bms"), fields["path"])
	assert.Equal("binary file", fields["error"])
	assert.Equal(res.ID.String(), fields["scan"])
	assert.Equal(1, logs.FilterMessage("scan complete").Len())

	lib := store.Library()
	require.Len(t, lib.Songs, 1)
	assert.Equal("Song", lib.Songs[0].Title)
	assert.Equal("someone", lib.Songs[0].Artist)
	assert.Equal(res.ID.String(), lib.ScanID)
	assert.Equal(StateIdle, scanner.State())

	// the document was written
	_, err := os.Stat(store.CachePath(root))
	assert.NoError(err)
}

func TestScanReusesUnchangedCharts(t *testing.T) {
	root := t.TempDir()
	writeChart(t, filepath.Join(root, "a"), "a.bms", "#TITLE a", "#00111:01")
	writeChart(t, filepath.Join(root, "b"), "b.bms", "#TITLE b", "#00111:01")

	store, scanner := newTestScanner(t, DefaultConfig())
	first := scanner.Scan(context.Background(), root)
	require.Equal(t, OutcomeCompleted, first.Outcome)
	assert.Equal(t, 2, first.Parsed)

	second := scanner.Scan(context.Background(), root)
	require.Equal(t, OutcomeCompleted, second.Outcome)
	assert.Equal(t, 2, second.Reused)
	assert.Zero(t, second.Parsed)
	assert.Equal(t, 2, store.Library().TotalCharts())

	// a fresh store picks the document up from disk
	reopened := NewStore(filepath.Dir(store.CachePath(root)))
	require.NoError(t, reopened.Open(root))
	third := NewScanner(reopened, DefaultConfig()).Scan(context.Background(), root)
	assert.Equal(t, 2, third.Reused)
}

func TestScanInvalidatesChangedCharts(t *testing.T) {
	root := t.TempDir()
	folder := filepath.Join(root, "song")
	path := writeChart(t, folder, "a.bms", "#TITLE before", "#00111:01")

	store, scanner := newTestScanner(t, DefaultConfig())
	require.Equal(t, OutcomeCompleted, scanner.Scan(context.Background(), root).Outcome)

	// touched but identical content: the hash still matches
	later := time.Now().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(path, later, later))
	res := scanner.Scan(context.Background(), root)
	assert.Equal(t, 1, res.Reused)
	chart, ok := store.Get(path)
	require.True(t, ok)
	assert.True(t, later.Equal(chart.LastModified))

	// new content
	writeChart(t, folder, "a.bms", "#TITLE after!", "#00111:01")
	res = scanner.Scan(context.Background(), root)
	assert.Equal(t, 1, res.Parsed)
	chart, _ = store.Get(path)
	assert.Equal(t, "after!", chart.Title)
}

func TestScanVerifyHashes(t *testing.T) {
	root := t.TempDir()
	folder := filepath.Join(root, "song")
	path := writeChart(t, folder, "a.bms", "#TITLE aaaa", "#00111:01")

	store, scanner := newTestScanner(t, DefaultConfig())
	require.Equal(t, OutcomeCompleted, scanner.Scan(context.Background(), root).Outcome)
	info, err := os.Stat(path)
	require.NoError(t, err)

	// same size, same modification time, different bytes
	writeChart(t, folder, "a.bms", "#TITLE bbbb", "#00111:01")
	require.NoError(t, os.Chtimes(path, info.ModTime(), info.ModTime()))

	res := scanner.Scan(context.Background(), root)
	assert.Equal(t, 1, res.Reused)
	chart, _ := store.Get(path)
	assert.Equal(t, "aaaa", chart.Title)

	config := DefaultConfig()
	config.VerifyHashes = true
	res = NewScanner(store, config).Scan(context.Background(), root)
	assert.Equal(t, 1, res.Parsed)
	chart, _ = store.Get(path)
	assert.Equal(t, "bbbb", chart.Title)
}

func TestScanMissingRoot(t *testing.T) {
	store, scanner := newTestScanner(t, DefaultConfig())
	store.Replace(sampleLibrary("/music"))

	res := scanner.Scan(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.True(t, errors.Is(res.Err, ErrRootNotFound))
	assert.Equal(t, "Error: root not found", scanner.Status())
	// the previous library stays published
	assert.Equal(t, 1, store.Library().TotalCharts())
}

func TestScanEmptyRoot(t *testing.T) {
	root := t.TempDir()
	store, scanner := newTestScanner(t, DefaultConfig())

	res := scanner.Scan(context.Background(), root)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Zero(t, res.Songs)
	assert.Equal(t, root, store.Library().RootPath)
}

func TestScanCancelled(t *testing.T) {
	root := t.TempDir()
	writeChart(t, filepath.Join(root, "a"), "a.bms", "#TITLE a", "#00111:01")

	store, scanner := newTestScanner(t, DefaultConfig())
	store.Replace(sampleLibrary("/music"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := scanner.Scan(ctx, root)

	assert.Equal(t, OutcomeCancelled, res.Outcome)
	assert.NoError(t, res.Err)
	assert.Equal(t, StateCancelled, scanner.State())
	assert.Equal(t, "/music", store.Library().RootPath)
	_, err := os.Stat(store.CachePath(root))
	assert.True(t, os.IsNotExist(err))
}

func TestScanStartSupersedesRunningScan(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a", "b", "c", "d"} {
		writeChart(t, filepath.Join(root, name), name+".bms", "#TITLE "+name, "#00111:01")
	}

	release := make(chan struct{})
	var once sync.Once
	config := DefaultConfig()
	config.OnProgress = func(p Progress) {
		// hold the first scan until the second one has been requested
		once.Do(func() { <-release })
	}
	store, scanner := newTestScanner(t, config)

	first := scanner.Start(context.Background(), root)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, StateScanning, scanner.State())

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	second := scanner.Scan(context.Background(), root)

	assert.Equal(t, OutcomeCancelled, (<-first).Outcome)
	assert.Equal(t, OutcomeCompleted, second.Outcome)
	assert.Equal(t, second.ID.String(), store.Library().ScanID)
	assert.Equal(t, StateIdle, scanner.State())
}

func TestScanProgress(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		writeChart(t, filepath.Join(root, name), name+".bms", "#TITLE "+name, "#00111:01")
	}

	var mu sync.Mutex
	var seen []Progress
	config := DefaultConfig()
	config.OnProgress = func(p Progress) {
		mu.Lock()
		seen = append(seen, p)
		mu.Unlock()
	}
	_, scanner := newTestScanner(t, config)
	res := scanner.Scan(context.Background(), root)
	require.Equal(t, OutcomeCompleted, res.Outcome)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i].Fraction, seen[i-1].Fraction)
		assert.Equal(t, res.ID, seen[i].ID)
	}
	last := seen[len(seen)-1]
	assert.Equal(t, 1.0, last.Fraction)
	assert.Equal(t, "Scan complete: 3 songs, 3 charts", last.Status)
	assert.Equal(t, last, scanner.Progress())
}

func TestScanSongImagesAndDifficulties(t *testing.T) {
	root := t.TempDir()
	folder := filepath.Join(root, "song")
	writeChart(t, folder, "songN.bms", "#TITLE Song", "#STAGEFILE title.jpg", "#00111:01")
	writeChart(t, folder, "songH.bms", "#TITLE Song", "#00111:01")
	for _, name := range []string{"Banner.PNG", "title.jpg", "bga.mpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(folder, name), nil, 0644))
	}

	store, scanner := newTestScanner(t, DefaultConfig())
	require.Equal(t, OutcomeCompleted, scanner.Scan(context.Background(), root).Outcome)

	lib := store.Library()
	require.Len(t, lib.Songs, 1)
	song := lib.Songs[0]
	assert.Equal(t, "Banner.PNG", song.BannerPath)
	assert.Equal(t, "title.jpg", song.StageFilePath)

	difficulties := map[string]int{}
	for _, c := range song.Charts {
		difficulties[c.FileName] = c.Difficulty
	}
	assert.Equal(t, map[string]int{"songN.bms": 2, "songH.bms": 3}, difficulties)
}
