package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
)

// Language returns the tree-sitter grammar for a script path, or nil when
// the extension has none.
func Language(path string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return python.GetLanguage()
	case ".js", ".mjs", ".cjs":
		return javascript.GetLanguage()
	case ".sh", ".bash":
		return bash.GetLanguage()
	default:
		return nil
	}
}

// Parse parses src with the grammar for path. The caller closes the tree.
func Parse(ctx context.Context, path string, src []byte) (*sitter.Tree, error) {
	lang := Language(path)
	if lang == nil {
		return nil, fmt.Errorf("no grammar for %s", filepath.Ext(path))
	}
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return tree, nil
}

// CheckSyntax reports the first syntax error in src as a SyntaxError load
// error. Files without a known grammar are not checked.
func CheckSyntax(ctx context.Context, path string, src []byte) error {
	if Language(path) == nil {
		return nil
	}
	tree, err := Parse(ctx, path, src)
	if err != nil {
		return err
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil
	}
	node := firstError(root)
	if node == nil {
		node = root
	}
	msg := "invalid syntax"
	if node.IsMissing() {
		msg = fmt.Sprintf("missing %q", node.Type())
	} else if text := snippet(node, src); text != "" {
		msg = fmt.Sprintf("invalid syntax near %q", text)
	}
	return &Error{
		Kind: SyntaxError,
		Path: path,
		Err:  fmt.Errorf("%s:%d: %s", filepath.Base(path), node.StartPoint().Row+1, msg),
	}
}

func firstError(node *sitter.Node) *sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if found := firstError(node.Child(i)); found != nil {
			return found
		}
	}
	return nil
}

func snippet(node *sitter.Node, src []byte) string {
	start, end := node.StartByte(), node.EndByte()
	if end > uint32(len(src)) {
		end = uint32(len(src))
	}
	if end <= start {
		return ""
	}
	text := strings.TrimSpace(string(src[start:end]))
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if len(text) > 40 {
		text = text[:40]
	}
	return text
}
