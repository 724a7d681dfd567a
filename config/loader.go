package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/func/seeder/ctyext"
	"github.com/func/seeder/resource"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// A Loader loads seed files from disk.
//
// The zero value is ready to load files. Environment variables are looked up
// with os.LookupEnv.
type Loader struct {
	// LookupEnv, if set, is used to expand ${NAME} references instead of
	// os.LookupEnv.
	LookupEnv func(name string) (string, bool)

	files map[string][]byte
}

// Files returns the names of the files loaded so far, in lexical order.
func (l *Loader) Files() []string {
	names := make([]string, 0, len(l.files))
	for name := range l.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load loads the seed files at the given paths. A path to a directory loads
// all .yaml, .yml and .json files in it, traversing into sub directories in
// lexical order. The path - reads from stdin.
//
// Load reports every problem found before returning; the returned error may
// contain multiple errors, which can be retrieved with multierr.Errors.
func (l *Loader) Load(paths ...string) ([]resource.RawItem, error) {
	var (
		items []resource.RawItem
		errs  error
	)
	for _, path := range paths {
		if path == "-" {
			got, err := l.Read("<stdin>", os.Stdin)
			items = append(items, got...)
			errs = multierr.Append(errs, err)
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			errs = multierr.Append(errs, errors.WithStack(err))
			continue
		}
		if !info.IsDir() {
			got, err := l.loadFile(path)
			items = append(items, got...)
			errs = multierr.Append(errs, err)
			continue
		}

		err = filepath.Walk(path, func(name string, info os.FileInfo, err error) error {
			if err != nil {
				return errors.WithStack(err)
			}
			if info.IsDir() || !isSeedFile(name) {
				return nil
			}
			got, err := l.loadFile(name)
			items = append(items, got...)
			errs = multierr.Append(errs, err)
			return nil
		})
		errs = multierr.Append(errs, err)
	}
	if errs != nil {
		return nil, errs
	}
	return items, nil
}

func isSeedFile(filename string) bool {
	switch filepath.Ext(filename) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func (l *Loader) loadFile(filename string) ([]resource.RawItem, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return l.Read(filename, bytes.NewReader(src))
}

// Read reads the seed documents from r. The filename is only used for
// locations.
func (l *Loader) Read(filename string, r io.Reader) ([]resource.RawItem, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", filename)
	}
	if l.files == nil {
		l.files = make(map[string][]byte)
	}
	l.files[filename] = src

	var (
		items []resource.RawItem
		errs  error
	)
	dec := yaml.NewDecoder(bytes.NewReader(src))
	for {
		var doc yaml.Node
		if err := dec.Decode(&doc); err != nil {
			if err == io.EOF {
				break
			}
			return nil, &resource.Error{
				Class:    resource.InvalidValue,
				Location: resource.Location{File: filename},
				Err:      errors.Wrap(err, "parse"),
			}
		}
		got, err := l.document(filename, &doc)
		items = append(items, got...)
		errs = multierr.Append(errs, err)
	}
	if errs != nil {
		return nil, errs
	}
	return items, nil
}

// document reads the items of a single document.
func (l *Loader) document(filename string, doc *yaml.Node) ([]resource.RawItem, error) {
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if isNull(root) {
		return nil, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, invalid(filename, root, "top level must map kind names to lists of items")
	}

	var (
		items []resource.RawItem
		errs  error
	)
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		kindLoc := location(filename, k)

		// An empty section is kept so that the kind name is still checked.
		if isNull(v) || (v.Kind == yaml.SequenceNode && len(v.Content) == 0) {
			items = append(items, resource.RawItem{Kind: k.Value, Location: kindLoc, KindLocation: kindLoc})
			continue
		}
		if v.Kind != yaml.SequenceNode {
			errs = multierr.Append(errs, invalid(filename, v, "%s: expected a list of items", k.Value))
			continue
		}

		for _, n := range v.Content {
			item, err := l.item(filename, k.Value, n)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			item.KindLocation = kindLoc
			items = append(items, item)
		}
	}
	return items, errs
}

func (l *Loader) item(filename, kind string, node *yaml.Node) (resource.RawItem, error) {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if node.Kind != yaml.MappingNode {
		return resource.RawItem{}, invalid(filename, node, "%s: item must be a mapping of field names to values", kind)
	}

	item := resource.RawItem{
		Kind:           kind,
		Location:       location(filename, node),
		Fields:         make(map[string]cty.Value, len(node.Content)/2),
		FieldLocations: make(map[string]resource.Location, len(node.Content)/2),
	}

	var errs error
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if _, dup := item.Fields[k.Value]; dup {
			errs = multierr.Append(errs, invalid(filename, k, "%s: field %q declared more than once", kind, k.Value))
			continue
		}
		if err := l.expand(filename, v); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		val, err := ctyext.FromYAML(v)
		if err != nil {
			errs = multierr.Append(errs, invalid(filename, v, "%s: field %q: %v", kind, k.Value, err))
			continue
		}
		item.Fields[k.Value] = val
		item.FieldLocations[k.Value] = location(filename, k)
	}
	return item, errs
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func location(filename string, n *yaml.Node) resource.Location {
	return resource.Location{File: filename, Line: n.Line, Column: n.Column}
}

func invalid(filename string, n *yaml.Node, format string, args ...interface{}) error {
	return &resource.Error{
		Class:    resource.InvalidValue,
		Location: location(filename, n),
		Err:      errors.Errorf(format, args...),
	}
}
