package config

import (
	"os"
	"regexp"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

var envRef = regexp.MustCompile(`\$\$|\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expand replaces ${NAME} references in every scalar of the node with the
// value of the environment variable NAME. $$ is replaced with a single $.
func (l *Loader) expand(filename string, node *yaml.Node) error {
	lookup := l.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var errs error
	var walk func(n *yaml.Node)
	walk = func(n *yaml.Node) {
		switch n.Kind {
		case yaml.ScalarNode:
			if !strings.Contains(n.Value, "$") {
				return
			}
			n.Value = envRef.ReplaceAllStringFunc(n.Value, func(ref string) string {
				if ref == "$$" {
					return "$"
				}
				name := ref[2 : len(ref)-1]
				val, ok := lookup(name)
				if !ok {
					errs = multierr.Append(errs, invalid(filename, n, "environment variable %s is not set", name))
					return ""
				}
				return val
			})
		case yaml.SequenceNode, yaml.MappingNode, yaml.DocumentNode:
			for _, c := range n.Content {
				walk(c)
			}
		}
	}
	walk(node)
	return errs
}
