// Package office reads and annotates uploaded office documents. Word files
// are handled at the OOXML level; spreadsheets go through excelize.
package office

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

// maxPartBytes caps how much of an uploaded archive is decompressed, so a
// small upload cannot expand without bound.
var maxPartBytes int64 = 64 << 20

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, filename string, content []byte) (string, error) {
	op := "extract " + filename
	if len(content) == 0 {
		return "", domain.WrapError(domain.ErrUnreadableDocument, op, fmt.Errorf("empty file"))
	}

	var (
		text string
		err  error
	)
	switch kindOf(filename, content) {
	case kindDocx:
		text, err = readDocxText(content)
	case kindXlsx:
		text, err = readXlsxText(content)
	case kindText:
		if !utf8.Valid(content) {
			err = fmt.Errorf("not valid UTF-8 text")
		}
		text = string(content)
	default:
		err = fmt.Errorf("unsupported file type %q", filepath.Ext(filename))
	}
	if err != nil {
		return "", domain.WrapError(domain.ErrUnreadableDocument, op, err)
	}
	return text, nil
}

type Annotator struct{}

func NewAnnotator() *Annotator {
	return &Annotator{}
}

// Annotate returns a new copy of original with the notes appended. With no
// notes the copy is byte-identical.
func (a *Annotator) Annotate(filename string, original []byte, notes []string) ([]byte, error) {
	if len(notes) == 0 {
		return append([]byte(nil), original...), nil
	}

	var (
		out []byte
		err error
	)
	switch kindOf(filename, original) {
	case kindDocx:
		out, err = appendDocxNotes(original, notes)
	case kindXlsx:
		out, err = appendXlsxNotes(original, notes)
	case kindText:
		out = appendTextNotes(original, notes)
	default:
		err = fmt.Errorf("unsupported file type %q", filepath.Ext(filename))
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrUnreadableDocument, "annotate "+filename, err)
	}
	return out, nil
}

func appendTextNotes(original []byte, notes []string) []byte {
	var b bytes.Buffer
	b.Write(original)
	b.WriteString("\n\n" + notesHeading + "\n\n")
	for _, note := range notes {
		b.WriteString("- " + note + "\n")
	}
	return b.Bytes()
}

type fileKind int

const (
	kindUnknown fileKind = iota
	kindDocx
	kindXlsx
	kindText
)

func kindOf(filename string, content []byte) fileKind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".docx":
		return kindDocx
	case ".xlsx":
		return kindXlsx
	case ".txt", ".md":
		return kindText
	case "":
		// Extension-less uploads are sniffed: OOXML packages are zip files.
		if bytes.HasPrefix(content, []byte("PK\x03\x04")) {
			return kindDocx
		}
		return kindText
	}
	return kindUnknown
}
