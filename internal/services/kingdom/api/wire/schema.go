package wire

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	apperrors "github.com/louisbranch/throne-of-dust/internal/platform/errors"
)

// Request schema names.
const (
	SchemaCredentials = "credentials"
	SchemaRecruit     = "recruit"
	SchemaAddTrait    = "add_trait"
	SchemaStartRaid   = "start_raid"
	SchemaListRaids   = "list_raids"
)

const schemaBaseURL = "https://schemas.throne-of-dust.local/"

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func loadSchemas() (map[string]*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		names := []string{SchemaCredentials, SchemaRecruit, SchemaAddTrait, SchemaStartRaid, SchemaListRaids}
		compiler := jsonschema.NewCompiler()
		for _, name := range names {
			raw, err := schemaFS.ReadFile("schemas/" + name + ".schema.json")
			if err != nil {
				schemasErr = fmt.Errorf("read schema %s: %w", name, err)
				return
			}
			if err := compiler.AddResource(schemaBaseURL+name, bytes.NewReader(raw)); err != nil {
				schemasErr = fmt.Errorf("add schema %s: %w", name, err)
				return
			}
		}
		compiled := make(map[string]*jsonschema.Schema, len(names))
		for _, name := range names {
			s, err := compiler.Compile(schemaBaseURL + name)
			if err != nil {
				schemasErr = fmt.Errorf("compile schema %s: %w", name, err)
				return
			}
			compiled[name] = s
		}
		schemas = compiled
	})
	return schemas, schemasErr
}

// Decode validates raw against the named schema and unmarshals it into dst.
// An empty body is treated as an empty object.
func Decode(schema string, raw []byte, dst any) error {
	compiled, err := loadSchemas()
	if err != nil {
		return err
	}
	s, ok := compiled[schema]
	if !ok {
		return fmt.Errorf("unknown schema %q", schema)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return apperrors.WithMetadata(apperrors.CodeInvalidArgument,
			fmt.Sprintf("malformed json: %v", err), map[string]string{"Field": "body"})
	}
	if err := s.Validate(doc); err != nil {
		return schemaError(err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperrors.WithMetadata(apperrors.CodeInvalidArgument,
			fmt.Sprintf("decode body: %v", err), map[string]string{"Field": "body"})
	}
	return nil
}

func schemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid request", err)
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	field := strings.TrimPrefix(ve.InstanceLocation, "/")
	if field == "" {
		field = "body"
	}
	return apperrors.WithMetadata(apperrors.CodeInvalidArgument,
		fmt.Sprintf("%s: %s", field, ve.Message), map[string]string{"Field": field})
}
