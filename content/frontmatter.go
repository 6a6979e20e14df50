package content

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

const frontMatterDelimiter = "---"

// ParseFrontMatter splits a document into its YAML front matter and body.
// A document that does not open with a delimiter line has no front matter and
// is returned whole as the body. Malformed YAML is an error.
func ParseFrontMatter(raw []byte) (map[string]any, string, error) {
	if !hasFrontMatter(raw) {
		return nil, string(raw), nil
	}

	// Skip the opening delimiter
	start := len(frontMatterDelimiter)
	if raw[start] == '\r' {
		start++
	}
	start++

	rest := raw[start:]
	var yamlContent []byte
	var bodyStart int
	if bytes.HasPrefix(rest, []byte(frontMatterDelimiter)) {
		// Empty front matter block
		bodyStart = start + len(frontMatterDelimiter)
	} else {
		closeIdx := bytes.Index(rest, []byte("\n"+frontMatterDelimiter))
		if closeIdx == -1 {
			return nil, "", fmt.Errorf("no closing front matter delimiter")
		}
		yamlContent = rest[:closeIdx]
		bodyStart = start + closeIdx + 1 + len(frontMatterDelimiter)
	}

	// Drop the remainder of the closing delimiter line
	for bodyStart < len(raw) && raw[bodyStart] != '\n' {
		bodyStart++
	}
	if bodyStart < len(raw) {
		bodyStart++
	}

	data := make(map[string]any)
	if len(bytes.TrimSpace(yamlContent)) > 0 {
		if err := yaml.Unmarshal(yamlContent, &data); err != nil {
			return nil, "", fmt.Errorf("parse YAML front matter: %w", err)
		}
		if data == nil {
			data = make(map[string]any)
		}
	}

	return data, string(raw[bodyStart:]), nil
}

func hasFrontMatter(raw []byte) bool {
	return bytes.HasPrefix(raw, []byte(frontMatterDelimiter+"\n")) ||
		bytes.HasPrefix(raw, []byte(frontMatterDelimiter+"\r\n"))
}

// MarshalFrontMatter renders data as a front matter block followed by body.
func MarshalFrontMatter(data map[string]any, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(frontMatterDelimiter + "\n")
	if len(data) > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return nil, fmt.Errorf("marshal front matter: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("marshal front matter: %w", err)
		}
	}
	buf.WriteString(frontMatterDelimiter + "\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}
