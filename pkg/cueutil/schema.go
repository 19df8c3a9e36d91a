// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// DefaultLimit caps document size when a Schema sets no Limit.
const DefaultLimit int64 = 5 << 20

// Schema is a compiled CUE definition.
type Schema struct {
	// Limit caps document size in bytes. Zero means DefaultLimit.
	Limit int64

	// cue.Context is not safe for concurrent use.
	mu  sync.Mutex
	ctx *cue.Context
	def cue.Value
}

// Compile compiles src and looks up definition (e.g. "#Manifest").
func Compile(src []byte, definition string) (*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src)
	if v.Err() != nil {
		return nil, fmt.Errorf("compiling schema: %w", v.Err())
	}
	def := v.LookupPath(cue.ParsePath(definition))
	if !def.Exists() || def.Err() != nil {
		return nil, fmt.Errorf("schema definition %s not found", definition)
	}
	return &Schema{ctx: ctx, def: def}, nil
}

// MustCompile is Compile for embedded schemas; it panics on error.
func MustCompile(src []byte, definition string) *Schema {
	s, err := Compile(src, definition)
	if err != nil {
		panic(err)
	}
	return s
}

// WithLimit sets Limit and returns s.
func (s *Schema) WithLimit(n int64) *Schema {
	s.Limit = n
	return s
}

// CheckSize rejects documents above the schema limit.
func (s *Schema) CheckSize(data []byte, filename string) error {
	limit := s.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if n := int64(len(data)); n > limit {
		return &SizeError{File: filename, Size: n, Limit: limit}
	}
	return nil
}

// Decode validates a complete document against s and decodes it into T.
func Decode[T any](s *Schema, data []byte, filename string) (*T, error) {
	var out T
	if err := s.decode(data, filename, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DecodeMap validates a partial document against s. Optional fields absent
// from the document stay absent from the map.
func DecodeMap(s *Schema, data []byte, filename string) (map[string]any, error) {
	out := map[string]any{}
	if err := s.decode(data, filename, false, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Schema) decode(data []byte, filename string, concrete bool, dst any) error {
	if filename == "" {
		filename = "<input>"
	}
	if err := s.CheckSize(data, filename); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.ctx.CompileBytes(data, cue.Filename(filename))
	if doc.Err() != nil {
		return newValidationError(doc.Err(), filename)
	}
	unified := s.def.Unify(doc)
	if err := unified.Validate(cue.Concrete(concrete)); err != nil {
		return newValidationError(err, filename)
	}
	if err := unified.Decode(dst); err != nil {
		return newValidationError(err, filename)
	}
	return nil
}
