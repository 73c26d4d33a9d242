package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"judgeengine/internal/model"
)

// WriteCodeTree materializes a (possibly nested) CodeTree under root and
// returns the absolute paths it wrote, in deterministic (sorted per level)
// order.
func WriteCodeTree(root string, tree model.CodeTree) ([]string, error) {
	var paths []string
	if err := writeNode(root, tree, &paths); err != nil {
		return nil, err
	}
	return paths, nil
}

func writeNode(dir string, node map[string]interface{}, paths *[]string) error {
	names := make([]string, 0, len(node))
	for name := range node {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		full := filepath.Join(dir, name)
		switch v := node[name].(type) {
		case string:
			if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
				return fmt.Errorf("compiler: mkdir for %q: %w", name, err)
			}
			if err := os.WriteFile(full, []byte(v), 0o644); err != nil {
				return fmt.Errorf("compiler: write %q: %w", name, err)
			}
			*paths = append(*paths, full)
		case map[string]interface{}:
			if err := writeNode(full, v, paths); err != nil {
				return err
			}
		case model.CodeTree:
			if err := writeNode(full, v, paths); err != nil {
				return err
			}
		default:
			return fmt.Errorf("compiler: unsupported code tree entry %q of type %T", name, v)
		}
	}
	return nil
}
