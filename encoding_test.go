package bmschart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

func TestDecodeTextShiftJIS(t *testing.T) {
	sjis, _, err := transform.String(japanese.ShiftJIS.NewEncoder(), "#TITLE 夏祭り\n")
	require.NoError(t, err)

	text, name, err := DecodeText([]byte(sjis), nil)
	require.NoError(t, err)
	assert.Equal(t, "shift_jis", name)
	assert.Equal(t, "#TITLE 夏祭り\n", text)
}

func TestDecodeTextFallsBackToUTF8(t *testing.T) {
	// 9 bytes of UTF-8; the last byte is a dangling Shift_JIS lead byte
	text, name, err := DecodeText([]byte("テスト"), nil)
	require.NoError(t, err)
	assert.Equal(t, "utf-8", name)
	assert.Equal(t, "テスト", text)
}

func TestDecodeTextBOM(t *testing.T) {
	text, name, err := DecodeText([]byte("\xEF\xBB\xBF#TITLE x"), nil)
	require.NoError(t, err)
	assert.Equal(t, "utf-8", name)
	assert.Equal(t, "#TITLE x", text)
}

func TestDecodeTextLastResort(t *testing.T) {
	text, name, err := DecodeText([]byte("caf\xe9"), []string{"utf-8", "windows-1252"})
	require.NoError(t, err)
	assert.Equal(t, "windows-1252", name)
	assert.Equal(t, "café", text)
}

func TestDecodeTextUnknownEncoding(t *testing.T) {
	_, _, err := DecodeText([]byte("x"), []string{"klingon"})
	assert.Error(t, err)
}

func TestDecodeBytesShiftJISTitle(t *testing.T) {
	sjis, _, err := transform.String(japanese.ShiftJIS.NewEncoder(), "#TITLE 曲名\r\n#00011:01\r\n")
	require.NoError(t, err)

	chart, err := DecodeBytes([]byte(sjis), DefaultDecodeOptions())
	require.NoError(t, err)
	assert.Equal(t, "曲名", chart.Metadata.Title)
	assert.Len(t, chart.Notes, 1)
}
