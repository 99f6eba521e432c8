package decl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/watchgraph/internal/ctxlog"
)

// Document is the parsed, not yet built, content of one or more files.
type Document struct {
	components []*componentBlock
}

// Names returns the declared component names in declaration order.
func (d *Document) Names() []string {
	out := make([]string, len(d.components))
	for i, c := range d.components {
		out[i] = c.Name
	}
	return out
}

// Loader parses component files.
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader creates a new HCL component loader.
func NewLoader() *Loader {
	return &Loader{parser: hclparse.NewParser()}
}

// Load parses every .hcl file found under paths. Directories are walked
// recursively; paths that do not exist are skipped.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Document, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	doc := &Document{}
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		if err := l.parse(doc, file, src); err != nil {
			return nil, err
		}
	}
	logger.Debug("HCL loading complete.", "components", len(doc.components))
	return doc, nil
}

// Parse parses one in-memory file.
func (l *Loader) Parse(filename string, src []byte) (*Document, error) {
	doc := &Document{}
	if err := l.parse(doc, filename, src); err != nil {
		return nil, err
	}
	return doc, nil
}

func (l *Loader) parse(doc *Document, filename string, src []byte) error {
	file, diags := l.parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}
	for _, c := range root.Components {
		c.src = file.Bytes
		doc.components = append(doc.components, c)
	}
	return nil
}

// findAllHCLFiles walks all given paths and returns a sorted, de-duplicated
// list of the .hcl files found.
func findAllHCLFiles(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	add := func(p string) {
		if filepath.Ext(p) == ".hcl" {
			seen[p] = struct{}{}
		}
	}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}
