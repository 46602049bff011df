// Package extract pulls the plain-text layer out of PDF lab reports.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractionError wraps a failure from the underlying PDF parser
// (corrupt file, encrypted file, unsupported structure).
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("error extracting text from PDF: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Text extracts the concatenated page text from a PDF. Pages whose text
// cannot be extracted or is empty are skipped. An empty return value with a
// nil error means the document has no extractable text layer (for example a
// scanned image); callers must treat that as a distinct rejectable condition
// rather than an extraction failure.
func Text(r io.ReaderAt, size int64) (text string, err error) {
	// The parser indexes into malformed cross-reference and object tables
	// without bounds checks and panics on some inputs it otherwise accepts.
	defer func() {
		if p := recover(); p != nil {
			text = ""
			err = &ExtractionError{Err: fmt.Errorf("parser panic: %v", p)}
		}
	}()

	rdr, err := pdf.NewReader(r, size)
	if err != nil {
		return "", &ExtractionError{Err: err}
	}

	var sb strings.Builder
	for i := 1; i <= rdr.NumPage(); i++ {
		page := rdr.Page(i)
		if page.V.IsNull() {
			continue
		}

		txt, err := page.GetPlainText(nil)
		if err != nil {
			// Image-only or problematic page, skip it.
			continue
		}
		txt = strings.TrimSpace(txt)
		if txt == "" {
			continue
		}

		sb.WriteString(txt)
		sb.WriteByte('\n')
	}

	return strings.TrimSpace(sb.String()), nil
}

// FromBytes extracts text from an in-memory PDF.
func FromBytes(data []byte) (string, error) {
	return Text(bytes.NewReader(data), int64(len(data)))
}

// FromFile extracts text from a PDF on disk.
func FromFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &ExtractionError{Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", &ExtractionError{Err: err}
	}

	return Text(f, info.Size())
}
