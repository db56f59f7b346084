package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SaveQueries updates the saved queries section of the config file. This
// preserves comments and formatting in other sections by editing the
// yaml.Node tree instead of re-marshalling the whole config.
func SaveQueries(configPath string, queries []QueryConfig) error {
	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	queriesNode, err := buildQueriesNode(queries)
	if err != nil {
		return fmt.Errorf("building queries node: %w", err)
	}

	if doc.Kind == 0 {
		// Empty or new file
		doc = yaml.Node{
			Kind: yaml.DocumentNode,
			Content: []*yaml.Node{
				{
					Kind: yaml.MappingNode,
					Content: []*yaml.Node{
						{Kind: yaml.ScalarNode, Value: "queries"},
						queriesNode,
					},
				},
			},
		}
	} else if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root := doc.Content[0]
		if root.Kind == yaml.MappingNode {
			found := false
			for i := 0; i < len(root.Content)-1; i += 2 {
				if root.Content[i].Value == "queries" {
					root.Content[i+1] = queriesNode
					found = true
					break
				}
			}
			if !found {
				root.Content = append(root.Content,
					&yaml.Node{Kind: yaml.ScalarNode, Value: "queries"},
					queriesNode,
				)
			}
		}
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("closing encoder: %w", err)
	}

	// Write via a temp file in the same directory so the swap is atomic.
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	temp, err := os.CreateTemp(dir, ".clientdb.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()
	if _, err := temp.Write(buf.Bytes()); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tempPath, configPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}

// buildQueriesNode creates a yaml.Node representing the queries array.
func buildQueriesNode(queries []QueryConfig) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode}
	for _, q := range queries {
		entry := &yaml.Node{Kind: yaml.MappingNode}
		entry.Content = append(entry.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "name"},
			&yaml.Node{Kind: yaml.ScalarNode, Value: q.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: "field"},
			&yaml.Node{Kind: yaml.ScalarNode, Value: q.Field},
			&yaml.Node{Kind: yaml.ScalarNode, Value: "value"},
			&yaml.Node{Kind: yaml.ScalarNode, Value: q.Value},
		)
		if q.Color != "" {
			entry.Content = append(entry.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: "color"},
				&yaml.Node{Kind: yaml.ScalarNode, Value: q.Color, Style: yaml.DoubleQuotedStyle},
			)
		}
		node.Content = append(node.Content, entry)
	}
	return node, nil
}
