package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/BerylCAtieno/bill-extractor-api/internal/utils"
)

// ExtractDOCXPages reads the text of word/document.xml, including table
// cells. Explicit page breaks start a new page; everything else is one page.
// Table rows become lines with their cells separated by tabs.
func ExtractDOCXPages(data []byte) ([]string, error) {
	xmlData, err := readDocumentXML(data)
	if err != nil {
		return nil, utils.NewParseError("invalid DOCX document", err)
	}

	pages, err := collectPages(bytes.NewReader(xmlData))
	if err != nil {
		return nil, utils.NewParseError("invalid DOCX document", err)
	}

	empty := true
	for _, p := range pages {
		if p != "" {
			empty = false
			break
		}
	}
	if empty {
		return nil, utils.NewParseError("no text could be extracted from DOCX", nil)
	}

	return pages, nil
}

type pageWriter struct {
	pages []string
	page  strings.Builder
	// cells holds the text of the open table cells, innermost last.
	cells []*strings.Builder
}

func (w *pageWriter) write(s string) {
	if n := len(w.cells); n > 0 {
		w.cells[n-1].WriteString(s)
		return
	}
	w.page.WriteString(s)
}

func (w *pageWriter) openCell() {
	w.cells = append(w.cells, &strings.Builder{})
}

func (w *pageWriter) closeCell() {
	n := len(w.cells)
	if n == 0 {
		return
	}
	text := strings.Join(strings.Fields(w.cells[n-1].String()), " ")
	w.cells = w.cells[:n-1]
	if len(w.cells) > 0 {
		w.write(text + " ")
		return
	}
	w.page.WriteString(text + "\t")
}

func (w *pageWriter) flush() {
	lines := strings.Split(w.page.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	w.pages = append(w.pages, strings.TrimSpace(strings.Join(lines, "\n")))
	w.page.Reset()
}

func collectPages(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	w := &pageWriter{}
	inText := false
	runDepth := 0

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "r":
				runDepth++
			case "t":
				inText = runDepth > 0
			case "tab":
				// tab stops in paragraph properties share the element name
				if runDepth > 0 {
					w.write("\t")
				}
			case "cr":
				if runDepth > 0 {
					w.write("\n")
				}
			case "br":
				if runDepth == 0 {
					break
				}
				if attrValue(t, "type") == "page" {
					w.flush()
				} else {
					w.write("\n")
				}
			case "tc":
				w.openCell()
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "r":
				runDepth--
			case "t":
				inText = false
			case "p":
				if len(w.cells) > 0 {
					w.write(" ")
				} else {
					w.write("\n")
				}
			case "tc":
				w.closeCell()
			case "tr":
				if len(w.cells) == 0 {
					w.page.WriteString("\n")
				}
			}
		case xml.CharData:
			if inText {
				w.write(string(t))
			}
		}
	}
	w.flush()

	return w.pages, nil
}

func attrValue(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func readDocumentXML(data []byte) ([]byte, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to read DOCX as ZIP: %w", err)
	}

	var documentFile *zip.File
	for _, file := range zipReader.File {
		if file.Name == "word/document.xml" {
			documentFile = file
			break
		}
	}

	if documentFile == nil {
		return nil, fmt.Errorf("document.xml not found in DOCX")
	}

	xmlFile, err := documentFile.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open document.xml: %w", err)
	}
	defer xmlFile.Close()

	xmlData, err := io.ReadAll(xmlFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read document.xml: %w", err)
	}

	return xmlData, nil
}
