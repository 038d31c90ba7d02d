package tags

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// Formats lists the supported export formats.
var Formats = []string{FormatJSON, FormatYAML, FormatTOML}

type tomlExport struct {
	Tags []Record `toml:"tag"`
}

// Export writes every record to w in the given format. JSON matches the
// durable file layout; YAML keeps insertion order in a mapping; TOML emits
// an array of tables.
func (s *Store) Export(w io.Writer, format string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		data []byte
		err  error
	)

	switch strings.ToLower(format) {
	case FormatJSON, "":
		data, err = s.encode()
	case FormatYAML, "yml":
		slice := make(yaml.MapSlice, 0, len(s.order))
		for _, key := range s.order {
			slice = append(slice, yaml.MapItem{Key: key, Value: s.records[key]})
		}
		data, err = yaml.Marshal(slice)
	case FormatTOML:
		data, err = toml.Marshal(tomlExport{Tags: s.snapshot()})
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", format, err)
	}

	_, err = w.Write(data)
	return err
}
