package capability

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed matrix.yaml
var defaultTable []byte

var (
	defaultOnce   sync.Once
	defaultMatrix *Matrix
)

// Default returns the matrix built from the embedded table.
func Default() *Matrix {
	defaultOnce.Do(func() {
		m, err := Load(bytes.NewReader(defaultTable))
		if err != nil {
			panic(fmt.Sprintf("capability: embedded table: %v", err))
		}
		defaultMatrix = m
	})
	return defaultMatrix
}

// Load parses a YAML table of the form resource -> role -> [actions].
// Unknown roles or actions are rejected so typos cannot silently deny access.
func Load(r io.Reader) (*Matrix, error) {
	var raw map[string]map[string][]string
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && err != io.EOF {
		return nil, fmt.Errorf("capability: decode table: %w", err)
	}
	grants := make(map[string]map[Role]Grant, len(raw))
	for resource, byRole := range raw {
		if resource == "" {
			return nil, fmt.Errorf("capability: empty resource name")
		}
		inner := make(map[Role]Grant, len(byRole))
		for rawRole, actions := range byRole {
			role, ok := ParseRole(rawRole)
			if !ok {
				return nil, fmt.Errorf("capability: %s: unknown role %q", resource, rawRole)
			}
			var grant Grant
			for _, rawAction := range actions {
				action, ok := ParseAction(rawAction)
				if !ok {
					return nil, fmt.Errorf("capability: %s/%s: unknown action %q", resource, role, rawAction)
				}
				switch action {
				case ActionCreate:
					grant.Create = true
				case ActionEdit:
					grant.Edit = true
				case ActionDelete:
					grant.Delete = true
				}
			}
			inner[role] = grant
		}
		grants[resource] = inner
	}
	return NewMatrix(grants), nil
}

// LoadFile reads a table from disk. An empty path yields the default matrix.
func LoadFile(path string) (*Matrix, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("capability: open table: %w", err)
	}
	defer f.Close()
	return Load(f)
}
