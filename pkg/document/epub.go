package document

import (
	"archive/zip"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

func readEPUB(path string) (string, error) {
	r, err := zip.OpenReader(path)

	if err != nil {
		return "", err
	}

	defer r.Close()

	var text strings.Builder

	for _, f := range r.File {
		switch strings.ToLower(filepath.Ext(f.Name)) {
		case ".xhtml", ".html", ".htm":
		default:
			continue
		}

		rc, err := f.Open()

		if err != nil {
			continue
		}

		doc, err := html.Parse(rc)
		rc.Close()

		if err != nil {
			continue
		}

		content := strings.TrimSpace(extractText(doc))

		if content != "" {
			text.WriteString(content)
			text.WriteString("\n")
		}
	}

	return text.String(), nil
}

func extractText(n *html.Node) string {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "head":
			return ""
		}
	}

	if n.Type == html.TextNode {
		return n.Data
	}

	var text strings.Builder

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text.WriteString(extractText(c))
	}

	if n.Type == html.ElementNode && isBlock(n.Data) {
		text.WriteString("\n")
	}

	return text.String()
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "br", "h1", "h2", "h3", "h4", "h5", "h6", "li", "tr", "section", "article":
		return true
	}

	return false
}
