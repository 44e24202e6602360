package domain

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var documentKeyPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Catalog is the fixed set of document slots a profile may hold. It is built
// once at startup and never mutated; accessors return copies.
type Catalog struct {
	required []DocumentTypeSpec
	optional []DocumentTypeSpec
}

type catalogFile struct {
	Required []DocumentTypeSpec `yaml:"required"`
	Optional []DocumentTypeSpec `yaml:"optional"`
}

func DefaultCatalog() Catalog {
	c, _ := NewCatalog(
		[]DocumentTypeSpec{
			{Key: "government_id", Label: "Government ID"},
			{Key: "proof_of_address", Label: "Proof of Address"},
		},
		[]DocumentTypeSpec{
			{Key: "certification", Label: "Certification"},
		},
	)
	return c
}

func NewCatalog(required, optional []DocumentTypeSpec) (Catalog, error) {
	seen := make(map[string]struct{})
	c := Catalog{
		required: make([]DocumentTypeSpec, 0, len(required)),
		optional: make([]DocumentTypeSpec, 0, len(optional)),
	}
	add := func(spec DocumentTypeSpec, isRequired bool) error {
		if !documentKeyPattern.MatchString(spec.Key) {
			return fmt.Errorf("invalid document type key %q", spec.Key)
		}
		if _, dup := seen[spec.Key]; dup {
			return fmt.Errorf("duplicate document type key %q", spec.Key)
		}
		seen[spec.Key] = struct{}{}
		if spec.Label == "" {
			spec.Label = spec.Key
		}
		spec.Required = isRequired
		if isRequired {
			c.required = append(c.required, spec)
		} else {
			c.optional = append(c.optional, spec)
		}
		return nil
	}
	for _, spec := range required {
		if err := add(spec, true); err != nil {
			return Catalog{}, err
		}
	}
	for _, spec := range optional {
		if err := add(spec, false); err != nil {
			return Catalog{}, err
		}
	}
	return c, nil
}

// LoadCatalog reads a YAML catalog file. An empty path yields the default catalog.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read document catalog: %w", err)
	}
	return ParseCatalog(raw)
}

func ParseCatalog(raw []byte) (Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Catalog{}, fmt.Errorf("parse document catalog: %w", err)
	}
	if len(file.Required) == 0 {
		return Catalog{}, fmt.Errorf("document catalog must declare at least one required document")
	}
	return NewCatalog(file.Required, file.Optional)
}

func (c Catalog) Required() []DocumentTypeSpec {
	return append([]DocumentTypeSpec(nil), c.required...)
}

func (c Catalog) Optional() []DocumentTypeSpec {
	return append([]DocumentTypeSpec(nil), c.optional...)
}

// All returns required specs followed by optional specs.
func (c Catalog) All() []DocumentTypeSpec {
	out := make([]DocumentTypeSpec, 0, len(c.required)+len(c.optional))
	out = append(out, c.required...)
	return append(out, c.optional...)
}
