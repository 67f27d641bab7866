package parser

import (
	"bytes"
	"embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const mochawesomeSchemaName = "mochawesome.schema.json"

//go:embed schema/*.json
var schemaFS embed.FS

var (
	mochawesomeSchema *jsonschema.Schema
	compileOnce       sync.Once
	compileErr        error
)

// compileSchemas compiles the embedded report schemas once.
func compileSchemas() error {
	compileOnce.Do(func() {
		data, err := schemaFS.ReadFile("schema/" + mochawesomeSchemaName)
		if err != nil {
			compileErr = fmt.Errorf("read mochawesome schema: %w", err)
			return
		}

		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal mochawesome schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(mochawesomeSchemaName, doc); err != nil {
			compileErr = fmt.Errorf("add mochawesome schema resource: %w", err)
			return
		}

		mochawesomeSchema, err = compiler.Compile(mochawesomeSchemaName)
		if err != nil {
			compileErr = fmt.Errorf("compile mochawesome schema: %w", err)
		}
	})

	return compileErr
}

// validateMochawesome checks content against the mochawesome report schema
func validateMochawesome(content []byte) error {
	if err := compileSchemas(); err != nil {
		return err
	}

	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(content))
	if err != nil {
		return err
	}

	if err := mochawesomeSchema.Validate(v); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
