// Package schema validates structured values against JSON Schema documents.
package schema

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/AbhinavRai30/api-framework/internal/value"
)

var (
	ErrInvalidSchema = errors.New("invalid JSON schema")
	ErrValidation    = errors.New("schema validation failed")
)

// Cache compiles each distinct schema document once.
type Cache struct {
	mu      sync.Mutex
	schemas map[string]*jsonschema.Schema
}

func NewCache() *Cache {
	return &Cache{
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Load resolves a schema argument: a mapping is used inline, text holding a
// JSON object is parsed, any other text is read as a file path.
func (c *Cache) Load(source value.Value) (*jsonschema.Schema, error) {
	var data []byte

	switch source.Kind() {
	case value.KindMapping, value.KindBool:
		raw, err := source.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
		}
		data = raw
	case value.KindText:
		if parsed := value.ParseExpected(source.Text()); parsed.Kind() == value.KindMapping {
			data = []byte(source.Text())
			break
		}
		raw, err := os.ReadFile(source.Text())
		if err != nil {
			return nil, fmt.Errorf("%w: read schema file %s: %v", ErrInvalidSchema, source.Text(), err)
		}
		data = raw
	default:
		return nil, fmt.Errorf("%w: schema must be a mapping, JSON text or file path, got %s", ErrInvalidSchema, source.Kind())
	}

	return c.compile(data)
}

func (c *Cache) compile(data []byte) (*jsonschema.Schema, error) {
	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:])

	c.mu.Lock()
	defer c.mu.Unlock()

	if compiled, ok := c.schemas[key]; ok {
		return compiled, nil
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: unmarshal schema: %v", ErrInvalidSchema, err)
	}

	url := key + ".schema.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("%w: add schema resource: %v", ErrInvalidSchema, err)
	}

	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("%w: compile schema: %v", ErrInvalidSchema, err)
	}

	c.schemas[key] = compiled
	return compiled, nil
}

// Validate checks instance against the schema described by source.
func (c *Cache) Validate(source, instance value.Value) error {
	compiled, err := c.Load(source)
	if err != nil {
		return err
	}

	if err := compiled.Validate(instance.ToAny()); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
