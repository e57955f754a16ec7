package lockfile

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// isBerry reports whether a yarn.lock uses the YAML format introduced with
// yarn 2 (berry), which always carries a __metadata block.
func isBerry(data []byte) bool {
	return bytes.Contains(data, []byte("__metadata:"))
}

// parseYarnClassic reads the yarn v1 lock format:
//
//	"@babel/code-frame@^7.0.0", "@babel/code-frame@^7.10.4":
//	  version "7.12.13"
//	  dependencies:
//	    "@babel/highlight" "^7.12.13"
func parseYarnClassic(data []byte) ([]Entry, error) {
	var entries []Entry
	cur := -1
	section := ""

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), " \t\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " "))

		switch {
		case indent == 0:
			if !strings.HasSuffix(trimmed, ":") {
				return nil, fmt.Errorf("line %d: expected entry key", lineNo)
			}
			entries = append(entries, Entry{Name: NameFromKey(strings.TrimSuffix(trimmed, ":"))})
			cur = len(entries) - 1
			section = ""
		case cur < 0:
			return nil, fmt.Errorf("line %d: field outside of an entry", lineNo)
		case indent <= 2:
			key, value := splitField(trimmed)
			section = ""
			switch key {
			case "version":
				entries[cur].Version = value
			case "dependencies", "optionalDependencies":
				if value == "" {
					section = key
				}
			}
		case section != "":
			name, _ := splitField(trimmed)
			entries[cur].Dependencies = appendUnique(entries[cur].Dependencies, name)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// splitField splits a classic lock line into its key and unquoted value.
func splitField(s string) (key, value string) {
	var rest string
	switch {
	case strings.HasPrefix(s, `"`):
		if end := strings.Index(s[1:], `"`); end >= 0 {
			key, rest = s[1:end+1], s[end+2:]
		} else {
			key = strings.Trim(s, `"`)
		}
	default:
		if i := strings.IndexAny(s, " :"); i >= 0 {
			key, rest = s[:i], s[i:]
		} else {
			key = s
		}
	}
	rest = strings.TrimPrefix(strings.TrimSpace(rest), ":")
	return key, strings.Trim(strings.TrimSpace(rest), `"`)
}

// flatValue is the value shape shared by yarn berry and pnpm entries.
type flatValue struct {
	Version              yaml.Node `yaml:"version"`
	Dependencies         yaml.Node `yaml:"dependencies"`
	OptionalDependencies yaml.Node `yaml:"optionalDependencies"`
}

func (v *flatValue) dependencyNames() []string {
	names := appendUnique(nil, mappingKeys(&v.Dependencies)...)
	return appendUnique(names, mappingKeys(&v.OptionalDependencies)...)
}

// parseYarnBerry reads the YAML lock format of yarn 2+. Entry order follows
// the document.
func parseYarnBerry(data []byte) ([]Entry, error) {
	root, err := yamlMapping(data)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		if key == "__metadata" {
			continue
		}
		var v flatValue
		if err := root.Content[i+1].Decode(&v); err != nil {
			return nil, fmt.Errorf("entry %q: %w", key, err)
		}
		entries = append(entries, Entry{
			Name:         NameFromKey(key),
			Version:      v.Version.Value,
			Dependencies: v.dependencyNames(),
		})
	}
	return entries, nil
}

// yamlMapping decodes data and returns its top-level mapping node.
func yamlMapping(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		return &yaml.Node{Kind: yaml.MappingNode}, nil
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping document")
	}
	return doc.Content[0], nil
}

// mappingKeys returns the keys of a mapping node in document order.
func mappingKeys(n *yaml.Node) []string {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		keys = append(keys, n.Content[i].Value)
	}
	return keys
}
