package bmschart

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultEncodings is tried in order when a chart declares no encoding:
// Shift_JIS first (most of the corpus), then UTF-8, then Windows-1252 as the
// catch-all.
var DefaultEncodings = []string{"shift_jis", "utf-8", "windows-1252"}

var knownEncodings = map[string]encoding.Encoding{
	"shift_jis":    japanese.ShiftJIS,
	"utf-8":        unicode.UTF8,
	"windows-1252": charmap.Windows1252,
}

var utf8BOM = []byte("\xEF\xBB\xBF")

const replacementChar = "\uFFFD"

// LookupEncoding resolves an encoding name (any WHATWG label).
func LookupEncoding(name string) (encoding.Encoding, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if enc, ok := knownEncodings[name]; ok {
		return enc, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	return enc, nil
}

// DecodeText converts raw chart bytes to a string, trying each encoding of
// policy in order. An attempt fails when the decoder errors or has to insert
// replacement characters; the last encoding is accepted regardless.
// It returns the text and the name of the encoding that was used.
func DecodeText(raw []byte, policy []string) (string, string, error) {
	if bytes.HasPrefix(raw, utf8BOM) {
		return string(raw[len(utf8BOM):]), "utf-8", nil
	}
	if len(policy) == 0 {
		policy = DefaultEncodings
	}

	hadReplacement := bytes.Contains(raw, []byte(replacementChar))
	var lastErr error
	for i, name := range policy {
		enc, err := LookupEncoding(name)
		if err != nil {
			return "", "", err
		}
		decoded, _, err := transform.Bytes(enc.NewDecoder(), raw)
		if err != nil {
			lastErr = err
			continue
		}
		last := i == len(policy)-1
		if !last && !hadReplacement && bytes.Contains(decoded, []byte(replacementChar)) {
			continue
		}
		return string(decoded), name, nil
	}
	return "", "", fmt.Errorf("no encoding could decode the text: %w", lastErr)
}
