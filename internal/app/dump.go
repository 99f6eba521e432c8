package app

import (
	"fmt"
	"io"

	"github.com/vk/watchgraph/internal/graph"
)

// writeDump renders d in format to w. DumpNone writes nothing.
func writeDump(w io.Writer, d graph.Dump, format string) error {
	var out []byte
	var err error
	switch format {
	case DumpNone:
		return nil
	case DumpDot:
		out = []byte(d.Graphviz())
	case DumpYAML:
		out, err = d.YAML()
	case DumpJSON:
		out, err = d.JSON()
		out = append(out, '\n')
	default:
		return fmt.Errorf("unsupported dump format %q", format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode dump: %w", err)
	}
	_, err = w.Write(out)
	return err
}
