package catalog

import (
	"strings"

	"github.com/spf13/cast"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/validate"
)

// checkText rejects rich text that renders as nothing, such as "<p></p>"
// or "<p><br></p>" left behind by an editor.
func checkText(b domain.Block) []validate.FieldError {
	src := cast.ToString(b.Content["html"])
	if strings.TrimSpace(src) == "" {
		return nil // reported by the required rule
	}
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return []validate.FieldError{{Field: "content.html", Message: "HTML inválido", Value: err.Error()}}
	}

	var errs []validate.FieldError
	if strings.TrimSpace(visibleText(doc)) == "" && !hasMedia(doc) {
		errs = append(errs, validate.FieldError{Field: "content.html", Message: "O texto não pode estar vazio"})
	}
	for _, href := range links(doc) {
		if strings.TrimSpace(href) == "" {
			errs = append(errs, validate.FieldError{Field: "content.html", Message: "Link sem destino"})
		}
	}
	return errs
}

func visibleText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return ""
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(visibleText(c))
	}
	return sb.String()
}

func hasMedia(n *html.Node) bool {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "img", "video", "iframe":
			return true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hasMedia(c) {
			return true
		}
	}
	return false
}

func links(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			href := ""
			for _, a := range n.Attr {
				if a.Key == "href" {
					href = a.Val
				}
			}
			out = append(out, href)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

var markdown = goldmark.New()

// checkMarkdown parses the source and reports links and images without a
// destination. Goldmark accepts any input, so there is no syntax error to
// report.
func checkMarkdown(b domain.Block) []validate.FieldError {
	src := []byte(cast.ToString(b.Content["source"]))
	if len(strings.TrimSpace(string(src))) == 0 {
		return nil
	}
	doc := markdown.Parser().Parse(text.NewReader(src))

	var errs []validate.FieldError
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Link:
			if len(strings.TrimSpace(string(node.Destination))) == 0 {
				errs = append(errs, validate.FieldError{Field: "content.source", Message: "Link sem destino"})
			}
		case *ast.Image:
			if len(strings.TrimSpace(string(node.Destination))) == 0 {
				errs = append(errs, validate.FieldError{Field: "content.source", Message: "Imagem sem endereço"})
			}
		}
		return ast.WalkContinue, nil
	})
	return errs
}
