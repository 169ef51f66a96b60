// Package docxtest reads paragraphs back out of generated .docx archives.
package docxtest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Paragraph is the flattened view of one w:p element.
type Paragraph struct {
	Style string
	Text  string
	Bold  bool
}

// ReadParagraphs extracts the body paragraphs of a .docx archive in order.
func ReadParagraphs(data []byte) ([]Paragraph, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx archive: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open document part: %w", err)
		}
		defer rc.Close()
		return parseBody(rc)
	}
	return nil, fmt.Errorf("docx archive has no word/document.xml")
}

func parseBody(r io.Reader) ([]Paragraph, error) {
	dec := xml.NewDecoder(r)
	var (
		out     []Paragraph
		cur     *Paragraph
		text    strings.Builder
		inText  bool
		boldRun bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse document part: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				cur = &Paragraph{}
				text.Reset()
			case "pStyle":
				if cur != nil {
					cur.Style = attr(t, "val")
				}
			case "r":
				boldRun = false
			case "b":
				boldRun = true
			case "t":
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "r":
				if cur != nil && boldRun {
					cur.Bold = true
				}
			case "p":
				if cur != nil {
					cur.Text = text.String()
					out = append(out, *cur)
					cur = nil
				}
			}
		case xml.CharData:
			if inText {
				text.Write(t)
			}
		}
	}
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
