package extractor

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/BerylCAtieno/bill-extractor-api/internal/utils"
)

// ExtractTXTPages decodes a plain-text bill. Form feeds separate pages;
// blank pages are dropped.
func ExtractTXTPages(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, utils.NewParseError("empty text file", nil)
	}

	text, err := decodeText(data)
	if err != nil {
		return nil, utils.NewParseError("failed to decode text file", err)
	}

	var pages []string
	for _, raw := range strings.Split(text, "\f") {
		if page := cleanText(raw); page != "" {
			pages = append(pages, page)
		}
	}

	if len(pages) == 0 {
		return nil, utils.NewParseError("no text could be extracted from file", nil)
	}

	return pages, nil
}

func decodeText(data []byte) (string, error) {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return string(data[3:]), nil
	}

	if len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE {
		decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		decoded, _, err := transform.Bytes(decoder, data)
		if err != nil {
			return "", err
		}
		return string(decoded), nil
	}

	if len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF {
		decoder := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
		decoded, _, err := transform.Bytes(decoder, data)
		if err != nil {
			return "", err
		}
		return string(decoded), nil
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	if err := validateText(data); err != nil {
		return "", err
	}

	decoder := charmap.Windows1252.NewDecoder()
	decoded, _, err := transform.Bytes(decoder, data)
	if err == nil {
		return string(decoded), nil
	}

	decoder = charmap.ISO8859_1.NewDecoder()
	decoded, _, err = transform.Bytes(decoder, data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	text = strings.ReplaceAll(text, "\x00", "")

	lines := strings.Split(text, "\n")

	var cleanedLines []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleanedLines = append(cleanedLines, line)
		}
	}

	return strings.Join(cleanedLines, "\n")
}

// validateText rejects data whose leading bytes look binary.
func validateText(data []byte) error {
	printableCount := 0
	sampleSize := 512
	if len(data) < sampleSize {
		sampleSize = len(data)
	}

	for i := 0; i < sampleSize; i++ {
		b := data[i]
		// Printable ASCII, high Latin-1, tabs, newlines, carriage returns, form feeds
		if (b >= 32 && b <= 126) || b >= 0xA0 || b == '\t' || b == '\n' || b == '\r' || b == '\f' {
			printableCount++
		}
	}

	if float64(printableCount)/float64(sampleSize) < 0.8 {
		return fmt.Errorf("file does not appear to be valid text")
	}

	return nil
}
