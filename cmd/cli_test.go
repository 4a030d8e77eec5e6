package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Shimi9999/bmschart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with fresh flag values and returns what it
// printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	timing = bmschart.TimingCumulative.String()
	encodings = bmschart.DefaultEncodings
	showNotes = false
	verifyHashes = false
	songsRoot = "."

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path string, lines ...string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\r\n")), 0644))
	return path
}

func testLibrary(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "fest", "fest_a.bms"),
		"#TITLE Festival [ANOTHER]", "#ARTIST alpha", "#GENRE eurobeat",
		"#PLAYLEVEL 12", "#DIFFICULTY 4", "#00111:0101")
	writeFile(t, filepath.Join(root, "fest", "fest_n.bms"),
		"#TITLE Festival [NORMAL]", "#ARTIST alpha", "#GENRE eurobeat",
		"#PLAYLEVEL 5", "#DIFFICULTY 2", "#00111:01")
	writeFile(t, filepath.Join(root, "other", "quiet.bms"),
		"#TITLE Quiet", "#ARTIST beta", "#00111:01")
	return root
}

func TestScanCommand(t *testing.T) {
	root := testLibrary(t)
	cache := t.TempDir()

	out, err := run(t, "--cache-dir", cache, "scan", root)
	require.NoError(t, err)
	assert.Contains(t, out, "completed: 2 songs, 3 charts (0 reused, 3 parsed, 0 failed)")

	out, err = run(t, "--cache-dir", cache, "scan", root)
	require.NoError(t, err)
	assert.Contains(t, out, "completed: 2 songs, 3 charts (3 reused, 0 parsed, 0 failed)")
}

func TestScanCommandMissingRoot(t *testing.T) {
	_, err := run(t, "--cache-dir", t.TempDir(), "scan", filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestSongsCommand(t *testing.T) {
	root := testLibrary(t)
	cache := t.TempDir()
	_, err := run(t, "--cache-dir", cache, "scan", root)
	require.NoError(t, err)

	out, err := run(t, "--cache-dir", cache, "songs", "--root", root, "ALPHA")
	require.NoError(t, err)
	assert.Contains(t, out, "Festival / alpha (eurobeat)")
	assert.NotContains(t, out, "Quiet")
	assert.True(t, strings.HasSuffix(out, "1 songs\n"))

	normal := strings.Index(out, "fest_n.bms")
	another := strings.Index(out, "fest_a.bms")
	require.True(t, normal >= 0 && another >= 0)
	assert.Less(t, normal, another)

	out, err = run(t, "--cache-dir", cache, "songs", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "Quiet / beta")
	assert.True(t, strings.HasSuffix(out, "2 songs\n"))
}

func TestDecodeCommand(t *testing.T) {
	folder := t.TempDir()
	path := writeFile(t, filepath.Join(folder, "song.bms"),
		"#TITLE Decode",
		"#ARTIST gamma",
		"#BPM 120",
		"#WAV01 kick.wav",
		"#WAV02 snare.wav",
		"#00111:0102",
		"#00203:F0",
	)
	require.NoError(t, os.WriteFile(filepath.Join(folder, "kick.ogg"), nil, 0644))

	out, err := run(t, "decode", "--notes", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Decode  / gamma")
	assert.Contains(t, out, "2 notes, 3000 ms")
	assert.Contains(t, out, "      0.00 ms  120 bpm")
	assert.Contains(t, out, "   4000.00 ms  240 bpm")
	assert.Contains(t, out, "   2000.00 ms  col  1  kick.wav")
	assert.Contains(t, out, "missing keysound #WAV02 snare.wav")
	assert.NotContains(t, out, "missing keysound #WAV01")
	assert.Contains(t, out, "2 keysounds, 1 missing")
}

func TestDecodeCommandEncodings(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "song.bms"), "#TITLE 曲名", "#00111:01")

	out, err := run(t, "--encodings", "utf-8", "decode", path)
	require.NoError(t, err)
	assert.Contains(t, out, "曲名")
}

func TestDecodeCommandUnknownTiming(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "song.bms"), "#BPM 120", "#00111:01")

	_, err := run(t, "--timing", "bogus", "decode", path)
	assert.EqualError(t, err, `unknown timing mode "bogus"`)

	out, err := run(t, "--timing", "reference", "decode", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 notes, 2000 ms")
}

func TestExportMidiCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, filepath.Join(dir, "song.bms"), "#BPM 120", "#00111:0101")
	target := filepath.Join(dir, "song.mid")

	out, err := run(t, "export-midi", path, target)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 2 notes to "+target)

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}
