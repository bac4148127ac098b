package lang

import (
	"bytes"
	"io"
	"log/slog"
	"os"

	"github.com/klauspost/readahead"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decode returns data as UTF-8. UTF-16 input is detected by its byte order
// mark; a UTF-8 byte order mark is stripped.
func Decode(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}),
		bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()

		out, _, err := transform.Bytes(dec, data)
		if err != nil {
			return nil, ErrReadInput.Wrap(err).With(slog.String("encoding", "utf-16"))
		}

		return out, nil

	default:
		return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}), nil
	}
}

// NewSource decodes data into a Source named name.
func NewSource(name string, data []byte) (*Source, error) {
	text, err := Decode(data)
	if err != nil {
		return nil, err
	}

	return &Source{Name: name, Text: text}, nil
}

// ReadSource reads and decodes r.
func ReadSource(name string, r io.Reader) (*Source, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).With(slog.String("source", name))
	}

	return NewSource(name, data)
}

// ReadSourceFile reads and decodes the file at path.
func ReadSourceFile(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).With(slog.String("path", path))
	}
	defer f.Close()

	return ReadSource(path, f)
}
