package office

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Sample is a demo upload used for local runs.
type Sample struct {
	Filename string
	Text     string
}

var demoSamples = []Sample{
	{"Articles_of_Association.docx", "Articles of Association\n\nClause 3.1 Jurisdiction\nThis Company shall be governed by the laws of Dubai.\n\n[signature]"},
	{"Memorandum_of_Association.docx", "Memorandum of Association\n\nPurpose: Sample text for demonstration.\n\n<signature>"},
	{"Board_Resolution.docx", "Board Resolution\n\nResolved that the Company approve incorporation matters.\n\n[signature]"},
	{"UBO_Declaration.docx", "Ultimate Beneficial Owner (UBO) Declaration\n\nWe hereby declare..."},
	{"Register_of_Members_and_Directors.docx", "Register of Members and Directors\n\nMember: Jane Doe\nDirector: John Smith"},
}

func DemoSamples() []Sample {
	out := make([]Sample, len(demoSamples))
	copy(out, demoSamples)
	return out
}

// WriteSamples writes the demo documents into dir and returns their paths.
func WriteSamples(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create samples dir: %w", err)
	}
	paths := make([]string, 0, len(demoSamples))
	for _, s := range demoSamples {
		data, err := BuildDocx(s.Text)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", s.Filename, err)
		}
		p := filepath.Join(dir, s.Filename)
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", p, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// BuildDocx renders text as a minimal Word document. Blank-line separated
// blocks become paragraphs; single newlines become line breaks.
func BuildDocx(text string) ([]byte, error) {
	var body bytes.Buffer
	for _, para := range strings.Split(text, "\n\n") {
		body.WriteString("<w:p><w:r>")
		for i, line := range strings.Split(para, "\n") {
			if i > 0 {
				body.WriteString("<w:br/>")
			}
			body.WriteString(`<w:t xml:space="preserve">`)
			if err := xml.EscapeText(&body, []byte(line)); err != nil {
				return nil, err
			}
			body.WriteString("</w:t>")
		}
		body.WriteString("</w:r></w:p>")
	}

	parts := []struct {
		name string
		data string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", packageRelsXML},
		{"word/_rels/document.xml.rels", documentRelsXML},
		{"word/styles.xml", stylesXML},
		{documentPart, xml.Header + `<w:document xmlns:w="` + wordNS + `"><w:body>` + body.String() +
			`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr></w:body></w:document>`},
	}

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	modified := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, p := range parts {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: p.name, Method: zip.Deflate, Modified: modified})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(p.data)); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

const contentTypesXML = xml.Header + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>` +
	`</Types>`

const packageRelsXML = xml.Header + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

const documentRelsXML = xml.Header + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
	`</Relationships>`

const stylesXML = xml.Header + `<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
	`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/>` +
	`<w:pPr><w:keepNext/><w:outlineLvl w:val="0"/></w:pPr><w:rPr><w:b/><w:sz w:val="32"/></w:rPr></w:style>` +
	`</w:styles>`
