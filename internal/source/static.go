package source

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"real-estate-site/internal/models"
)

//go:embed schema/dataset.json
var datasetSchemaJSON string

const datasetSchemaURL = "dataset.json"

var compileDatasetSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	compiler.AssertFormat = true

	if err := compiler.AddResource(datasetSchemaURL, strings.NewReader(datasetSchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add dataset schema: %w", err)
	}
	return compiler.Compile(datasetSchemaURL)
})

// Static reads listings from a YAML or JSON dataset file.
// The file is re-read on every List so edits show up on the next refresh.
type Static struct {
	path string
}

// NewStatic returns a source over the dataset at path.
func NewStatic(path string) *Static {
	return &Static{path: path}
}

func (s *Static) List(_ context.Context) ([]models.Property, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", s.path, err)
	}

	properties, err := ParseDataset(data)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", s.path, err)
	}
	return properties, nil
}

func (s *Static) Get(ctx context.Context, id int) (*models.Property, error) {
	properties, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return find(properties, id)
}

// ParseDataset decodes a dataset document ({"properties": [...]}, YAML or JSON),
// checks it against the dataset schema and rejects duplicate IDs.
func ParseDataset(data []byte) ([]models.Property, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}

	// Round-trip through JSON so the validator sees JSON types.
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to convert dataset: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(asJSON, &doc); err != nil {
		return nil, fmt.Errorf("failed to convert dataset: %w", err)
	}

	schema, err := compileDatasetSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid dataset: %w", err)
	}

	var dataset struct {
		Properties []models.Property `json:"properties"`
	}
	if err := json.Unmarshal(asJSON, &dataset); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}

	seen := make(map[int]bool, len(dataset.Properties))
	for _, p := range dataset.Properties {
		if seen[p.ID] {
			return nil, fmt.Errorf("invalid dataset: duplicate property id %d", p.ID)
		}
		seen[p.ID] = true
	}

	return dataset.Properties, nil
}
