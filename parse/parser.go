// Package parse discovers Java source files under a target directory and
// parses each into a tree-sitter syntax tree. It is the sole caller of the
// tree-sitter Java grammar; every later stage consumes *sitter.Node trees
// produced here and never touches tree-sitter itself.
package parse

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/taintgraph/engine/diagnostic"
	"github.com/taintgraph/engine/output"
)

// Unit is one parsed compilation unit: its path, source bytes, and the
// tree-sitter root node. The *sitter.Tree is kept so callers can Close it
// once every stage that reads Unit.Root has run.
type Unit struct {
	Path   string
	Source []byte
	Root   *sitter.Node
	Tree   *sitter.Tree
}

// Close releases the underlying tree-sitter tree.
func (u *Unit) Close() {
	if u.Tree != nil {
		u.Tree.Close()
	}
}

// Parser parses Java source files one at a time. Unlike the worker-pool
// discovery in the teacher it runs single-threaded, matching the pipeline's
// sequential-stage contract: nothing downstream of extraction assumes
// file order, but cancellation is checked once per file, not once per
// worker.
type Parser struct {
	logger *output.Logger
}

// New creates a Parser that reports progress and errors through logger.
func New(logger *output.Logger) *Parser {
	return &Parser{logger: logger}
}

// Discover walks a directory and returns every .java file path beneath it,
// in filepath.Walk order (lexical per directory).
func (p *Parser) Discover(root string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.EqualFold(filepath.Ext(path), ".java") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, diagnostic.Wrap(diagnostic.KindParseError, root, err)
	}
	return files, nil
}

// ParseAll discovers and parses every Java file under root, stopping (and
// returning what it has parsed so far) if ctx is cancelled between files.
// A single file that fails to parse is logged and skipped; it never aborts
// the whole run, mirroring the teacher's "log and continue" worker loop.
func (p *Parser) ParseAll(ctx context.Context, root string) ([]*Unit, error) {
	files, err := p.Discover(root)
	if err != nil {
		return nil, err
	}

	units := make([]*Unit, 0, len(files))
	if p.logger != nil {
		p.logger.StartProgress("Parsing", len(files))
	}
	for _, file := range files {
		select {
		case <-ctx.Done():
			if p.logger != nil {
				p.logger.FinishProgress()
			}
			return units, ctx.Err()
		default:
		}

		unit, err := p.ParseFile(ctx, file)
		if err != nil {
			if p.logger != nil {
				p.logger.Warning("skipping %s: %v", file, err)
			}
			continue
		}
		units = append(units, unit)
		if p.logger != nil {
			p.logger.UpdateProgress(1)
		}
	}
	if p.logger != nil {
		p.logger.FinishProgress()
	}
	return units, nil
}

// ParseFile parses a single Java source file.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Unit, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, diagnostic.Wrap(diagnostic.KindParseError, path, err)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(java.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, diagnostic.Wrap(diagnostic.KindParseError, path, err)
	}

	return &Unit{Path: path, Source: source, Root: tree.RootNode(), Tree: tree}, nil
}
