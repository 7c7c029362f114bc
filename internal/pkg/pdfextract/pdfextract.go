package pdfextract

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// Result is the text of a PDF together with its page count.
type Result struct {
	Text      string
	PageCount int
}

// Extract reads the entire content of r and extracts plain text from the PDF.
// A PDF without extractable text returns an empty Text and nil error.
func Extract(r io.Reader) (*Result, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf failed: %w", err)
	}
	if len(b) == 0 {
		return &Result{}, nil
	}
	return ExtractBytes(b)
}

func ExtractBytes(b []byte) (res *Result, err error) {
	// the pdf package panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("parse pdf failed: %v", r)
		}
	}()

	pdfReader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open pdf failed: %w", err)
	}
	plainReader, err := pdfReader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extract pdf text failed: %w", err)
	}
	out, err := io.ReadAll(plainReader)
	if err != nil {
		return nil, fmt.Errorf("read pdf text failed: %w", err)
	}
	return &Result{Text: string(out), PageCount: pdfReader.NumPage()}, nil
}
