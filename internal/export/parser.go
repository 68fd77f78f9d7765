package export

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parser reads an exported file back into a Document.
type Parser interface {
	Parse(data []byte) (*Document, error)
}

// ParserFor picks a parser from the file extension.
func ParserFor(path string) (Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return &JSONParser{}, nil
	case ".yaml", ".yml":
		return &YAMLParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	}
	return nil, fmt.Errorf("cannot import %s: only .md, .json and .yaml exports can be read back", filepath.Base(path))
}

// JSONParser parses a JSON export.
type JSONParser struct{}

func (p *JSONParser) Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON export: %w", err)
	}
	return &doc, nil
}

// YAMLParser parses a YAML export.
type YAMLParser struct{}

func (p *YAMLParser) Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML export: %w", err)
	}
	return &doc, nil
}

// MarkdownParser extracts the embedded payload from a Markdown export.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(data []byte) (*Document, error) {
	if !bytes.Contains(data, []byte(markdownSentinel)) {
		return nil, fmt.Errorf("not a studyai export: missing version sentinel")
	}

	content := string(data)
	start := strings.Index(content, markdownDataTag)
	if start == -1 {
		return nil, fmt.Errorf("not a studyai export: missing data payload")
	}
	start += len(markdownDataTag)
	end := strings.Index(content[start:], " -->")
	if end == -1 {
		return nil, fmt.Errorf("not a studyai export: malformed data payload")
	}

	jsonBytes, err := base64.StdEncoding.DecodeString(content[start : start+end])
	if err != nil {
		return nil, fmt.Errorf("not a studyai export: corrupted base64 payload: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(jsonBytes, &doc); err != nil {
		return nil, fmt.Errorf("not a studyai export: failed to parse embedded JSON: %w", err)
	}
	return &doc, nil
}
