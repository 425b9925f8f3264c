package document

import (
	"strings"

	"github.com/ledongthuc/pdf"
)

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)

	if err != nil {
		return "", err
	}

	defer f.Close()

	var text strings.Builder

	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)

		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)

		if err != nil {
			continue
		}

		if content != "" {
			text.WriteString(content)
			text.WriteString("\n")
		}
	}

	return text.String(), nil
}
