package bmschart

import (
	"crypto/md5"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
)

var ErrUnsupportedExtension = errors.New("unsupported extension")

// LoadBms reads and fully decodes the chart at path.
func LoadBms(path string, opts DecodeOptions) (*Chart, error) {
	if !IsBmsPath(path) {
		return nil, &DecodeError{Path: path, Op: "open", Err: ErrUnsupportedExtension}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Op: "open", Err: err}
	}

	chart, err := DecodeBytes(raw, opts)
	if err != nil {
		if de, ok := err.(*DecodeError); ok {
			de.Path = path
		}
		return nil, err
	}
	return chart, nil
}

// FileHash returns the hex md5 and sha256 digests of the chart bytes.
func FileHash(raw []byte) (string, string) {
	md5 := fmt.Sprintf("%x", md5.Sum(raw))
	sha256 := fmt.Sprintf("%x", sha256.Sum256(raw))

	return md5, sha256
}
