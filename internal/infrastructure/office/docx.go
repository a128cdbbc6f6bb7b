package office

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	wordNS       = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	documentPart = "word/document.xml"
	notesHeading = "Automated Review Notes"
)

// readDocxText returns the paragraph text of a .docx package, one paragraph
// per line. Line breaks inside a paragraph become "\n" and tabs "\t".
func readDocxText(content []byte) (string, error) {
	part, err := readZipPart(content, documentPart)
	if err != nil {
		return "", err
	}

	dec := xml.NewDecoder(bytes.NewReader(part))
	var (
		paragraphs []string
		current    strings.Builder
		inPara     bool
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", documentPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "p":
				inPara = true
				current.Reset()
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br", "cr":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inPara {
					paragraphs = append(paragraphs, current.String())
				}
				inPara = false
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}

// appendDocxNotes returns a copy of the package with a page break, a heading
// and one paragraph per note added at the end of the body.
func appendDocxNotes(original []byte, notes []string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(original), int64(len(original)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	found := false
	for _, f := range zr.File {
		if f.Name != documentPart {
			if err := zw.Copy(f); err != nil {
				return nil, fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}

		found = true
		part, err := readZipFile(f)
		if err != nil {
			return nil, err
		}
		updated, err := insertBeforeBodyEnd(part, notesXML(notes))
		if err != nil {
			return nil, err
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Deflate, Modified: f.Modified})
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", f.Name, err)
		}
		if _, err := w.Write(updated); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.Name, err)
		}
	}
	if !found {
		return nil, fmt.Errorf("docx has no %s", documentPart)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close docx: %w", err)
	}
	return out.Bytes(), nil
}

// insertBeforeBodyEnd places fragment ahead of the body-level section
// properties, or ahead of </w:body> when the document has none.
func insertBeforeBodyEnd(doc, fragment []byte) ([]byte, error) {
	bodyEnd := bytes.LastIndex(doc, []byte("</w:body>"))
	if bodyEnd < 0 {
		return nil, fmt.Errorf("%s has no w:body", documentPart)
	}
	at := bodyEnd
	if sect := bytes.LastIndex(doc[:bodyEnd], []byte("<w:sectPr")); sect >= 0 && !bytes.Contains(doc[sect:bodyEnd], []byte("</w:p>")) {
		at = sect
	}

	out := make([]byte, 0, len(doc)+len(fragment))
	out = append(out, doc[:at]...)
	out = append(out, fragment...)
	out = append(out, doc[at:]...)
	return out, nil
}

func notesXML(notes []string) []byte {
	var b bytes.Buffer
	b.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
	b.WriteString(`<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>`)
	_ = xml.EscapeText(&b, []byte(notesHeading))
	b.WriteString(`</w:t></w:r></w:p>`)
	for _, note := range notes {
		b.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
		_ = xml.EscapeText(&b, []byte("- "+note))
		b.WriteString(`</w:t></w:r></w:p>`)
	}
	return b.Bytes()
}

func readZipPart(content []byte, name string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	for _, f := range zr.File {
		if f.Name == name {
			return readZipFile(f)
		}
	}
	return nil, fmt.Errorf("docx has no %s", name)
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxPartBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	if int64(len(data)) > maxPartBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes uncompressed", f.Name, maxPartBytes)
	}
	return data, nil
}
