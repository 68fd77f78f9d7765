package export

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Renderer serializes a Document to bytes.
type Renderer interface {
	Render(doc *Document) ([]byte, error)
	Ext() string
}

// Formats lists the names accepted by ForFormat.
var Formats = []string{"markdown", "json", "yaml", "doc"}

// ForFormat returns the renderer for a format name.
func ForFormat(name string) (Renderer, error) {
	switch strings.ToLower(name) {
	case "markdown", "md", "":
		return &MarkdownRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	case "yaml", "yml":
		return &YAMLRenderer{}, nil
	case "doc", "word":
		return &DocRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown export format %q (want one of %s)", name, strings.Join(Formats, ", "))
}

// JSONRenderer renders a Document as indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) Ext() string { return "json" }

func (r *JSONRenderer) Render(doc *Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// YAMLRenderer renders a Document as YAML.
type YAMLRenderer struct{}

func (r *YAMLRenderer) Ext() string { return "yaml" }

func (r *YAMLRenderer) Render(doc *Document) ([]byte, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return data, nil
}

const (
	markdownSentinel = "<!-- studyai-export-version: 1 -->"
	markdownDataTag  = "<!-- studyai-data: "
)

// MarkdownRenderer renders a Document as readable Markdown with an embedded
// base64 JSON payload so the file can be imported back losslessly.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Ext() string { return "md" }

func (r *MarkdownRenderer) Render(doc *Document) ([]byte, error) {
	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(markdownSentinel + "\n")
	fmt.Fprintf(&sb, "%s%s -->\n\n", markdownDataTag, base64.StdEncoding.EncodeToString(jsonBytes))

	fmt.Fprintf(&sb, "# %s\n\n", doc.Title)
	fmt.Fprintf(&sb, "_Exported %s_\n\n", doc.ExportedAt.Format("2006-01-02 15:04:05 MST"))

	if len(doc.Items) == 0 {
		sb.WriteString("_No questions yet._\n")
	}
	for i, it := range doc.Items {
		if it.Question != "" {
			fmt.Fprintf(&sb, "## Question %d\n\n%s\n\n", i+1, it.Question)
		}
		sb.WriteString("### Answer\n\n")
		if it.Answer == "" {
			sb.WriteString("_No answer._\n\n")
		} else {
			sb.WriteString(it.Answer)
			if !strings.HasSuffix(it.Answer, "\n") {
				sb.WriteString("\n")
			}
			sb.WriteString("\n")
		}
		if len(it.Suggestions) > 0 {
			sb.WriteString("**Follow-up ideas**\n\n")
			for _, s := range it.Suggestions {
				fmt.Fprintf(&sb, "- %s\n", s)
			}
			sb.WriteString("\n")
		}
	}
	return []byte(sb.String()), nil
}

// DocRenderer renders a Document as Word-compatible HTML: a UTF-8 byte
// order mark followed by a plain HTML page, which Word opens as a .doc.
type DocRenderer struct{}

func (r *DocRenderer) Ext() string { return "doc" }

var (
	boldMarks   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicMarks = regexp.MustCompile(`\*(.*?)\*`)
)

// formatInline escapes s and turns newlines, **bold** and *italic* into HTML.
func formatInline(s string) string {
	s = html.EscapeString(s)
	s = strings.ReplaceAll(s, "\n", "<br>")
	s = boldMarks.ReplaceAllString(s, "<b>$1</b>")
	return italicMarks.ReplaceAllString(s, "<i>$1</i>")
}

func (r *DocRenderer) Render(doc *Document) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString("\ufeff")
	sb.WriteString("<html><head><meta charset='utf-8'></head><body>")
	sb.WriteString(`<div style="font-family: sans-serif; color: #000; padding: 20px; background: #fff;">`)
	fmt.Fprintf(&sb, `<h2 style="color: #6b21a8; border-bottom: 1px solid #e5e5e5; padding-bottom: 10px;">%s</h2>`,
		html.EscapeString(doc.Title))
	for _, it := range doc.Items {
		if it.Question != "" {
			sb.WriteString(`<h4 style="color: #333; margin-top: 20px;">Question:</h4>`)
			fmt.Fprintf(&sb, `<div style="background: #f9f9f9; padding: 10px; border-radius: 5px; margin-bottom: 20px;">%s</div>`,
				formatInline(it.Question))
		}
		sb.WriteString(`<h4 style="color: #6b21a8;">Answer:</h4>`)
		fmt.Fprintf(&sb, `<div style="background: #faf5ff; padding: 10px; border-radius: 5px;">%s</div>`,
			formatInline(it.Answer))
	}
	sb.WriteString("</div></body></html>")
	return []byte(sb.String()), nil
}
