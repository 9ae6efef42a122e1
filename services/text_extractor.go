package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"transfer-credit-api/storage"
)

// Runner lets tests stub the external fallback extractor.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	err := cmd.Run()
	return out.Bytes(), errb.Bytes(), err
}

// TextExtractor turns a stored PDF into plain text. It parses the PDF
// in process first and shells out to pdftotext when that fails or
// yields nothing. Reading is the only side effect.
type TextExtractor struct {
	store     storage.FileStore
	runner    Runner
	pdftotext string
}

func NewTextExtractor(store storage.FileStore) *TextExtractor {
	bin := os.Getenv("PDFTOTEXT_BIN")
	if bin == "" {
		bin = "pdftotext"
	}
	return &TextExtractor{store: store, runner: execRunner{}, pdftotext: bin}
}

// ExtractText reads the document at location and returns its plain text.
// A missing document wraps ErrNotFound. A document where neither strategy
// finds text (scanned image pages, empty files) wraps ErrEmptyContent;
// that is a content problem, so no retry happens here.
func (x *TextExtractor) ExtractText(ctx context.Context, location string) (string, error) {
	exists, err := x.store.Exists(ctx, location)
	if err != nil {
		return "", fmt.Errorf("checking document %s: %w", location, err)
	}
	if !exists {
		return "", fmt.Errorf("document %s: %w", location, ErrNotFound)
	}

	tmpPath, cleanup, err := x.tempCopy(ctx, location)
	if err != nil {
		return "", err
	}
	defer cleanup()

	text, primaryErr := extractWithReader(tmpPath)
	if primaryErr != nil || strings.TrimSpace(text) == "" {
		fallbackText, fallbackErr := x.extractWithPdftotext(ctx, tmpPath)
		switch {
		case fallbackErr != nil:
			log.Warn().
				AnErr("primary", primaryErr).
				AnErr("fallback", fallbackErr).
				Str("location", location).
				Msg("both text extraction strategies failed")
		case strings.TrimSpace(fallbackText) != "":
			text = fallbackText
		}
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("document %s: %w", location, ErrEmptyContent)
	}
	return text, nil
}

// tempCopy materializes the stored document as a local file so both
// extraction strategies can work from a path.
func (x *TextExtractor) tempCopy(ctx context.Context, location string) (string, func(), error) {
	src, err := x.store.Open(ctx, location)
	if err != nil {
		return "", nil, fmt.Errorf("opening document %s: %w", location, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "transfer-doc-*.pdf")
	if err != nil {
		return "", nil, err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, err
	}

	cleanup := func() {
		os.Remove(tmp.Name())
	}
	return tmp.Name(), cleanup, nil
}

// extractWithReader is the in-process strategy. The parser panics on
// some malformed documents, so recover turns those into errors for the
// fallback to handle.
func extractWithReader(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(textReader); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (x *TextExtractor) extractWithPdftotext(ctx context.Context, path string) (string, error) {
	out, errb, err := x.runner.Run(ctx, x.pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w (stderr: %s)", err, strings.TrimSpace(string(errb)))
	}
	return string(out), nil
}
