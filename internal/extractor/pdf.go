package extractor

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/BerylCAtieno/bill-extractor-api/internal/utils"
)

// ExtractPDFPages returns the plain text of every page in document order.
// Pages without a page object come back as empty strings so the result
// length always equals the page count.
func ExtractPDFPages(data []byte) (pages []string, err error) {
	// the parser panics on some malformed object streams
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = utils.NewParseError("invalid PDF document", fmt.Errorf("pdf parser panic: %v", r))
		}
	}()

	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, utils.NewParseError("invalid PDF document", err)
	}

	numPages := pdfReader.NumPage()
	pages = make([]string, 0, numPages)

	for i := 1; i <= numPages; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, utils.NewParseError(fmt.Sprintf("failed to read text of page %d", i), err)
		}

		pages = append(pages, text)
	}

	return pages, nil
}
