// Package schema gates plans on their JSON shape before any deeper check
// runs. The default schema is embedded; a replacement document can be
// loaded from disk.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ahrav/go-tripcheck/internal/domain"
)

//go:embed plan_schema.json
var defaultSchema []byte

// DefaultSchema returns a copy of the embedded plan schema document.
func DefaultSchema() []byte { return append([]byte(nil), defaultSchema...) }

// FieldError is one violated schema location.
type FieldError struct {
	// Location is a JSON pointer into the plan, "" for the document root.
	Location string `json:"location"`

	// Message describes the violation.
	Message string `json:"message"`
}

// String formats the error as "location: message".
func (e FieldError) String() string {
	loc := e.Location
	if loc == "" {
		loc = "/"
	}
	return loc + ": " + e.Message
}

// Result is the outcome of validating one plan.
type Result struct {
	Passed bool
	Errors []FieldError
}

// Messages returns the errors formatted for diagnostics.
func (r Result) Messages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.String()
	}
	return out
}

// Validator checks plan documents against a compiled schema. It is safe
// for concurrent use.
type Validator struct {
	schema *jsonschema.Schema
}

// New compiles the embedded schema.
func New() (*Validator, error) { return NewFromBytes("plan.schema.json", defaultSchema) }

// NewFromFile compiles the schema document at path.
func NewFromFile(path string) (*Validator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read schema %s: %v", domain.ErrInvalidConfiguration, path, err)
	}
	return NewFromBytes(path, data)
}

// NewFromBytes compiles a schema document. A document that is not a valid
// schema is a configuration error.
func NewFromBytes(name string, doc []byte) (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(name, bytes.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("%w: schema %s: %v", domain.ErrInvalidConfiguration, name, err)
	}
	s, err := c.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("%w: schema %s: %v", domain.ErrInvalidConfiguration, name, err)
	}
	return &Validator{schema: s}, nil
}

// Validate checks raw plan JSON. Empty input, invalid JSON and an empty
// object all fail.
func (v *Validator) Validate(data []byte) Result {
	if len(bytes.TrimSpace(data)) == 0 {
		return failure("", "plan is empty")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return failure("", "invalid JSON: "+err.Error())
	}
	return v.ValidateValue(doc)
}

// ValidateValue checks an already decoded JSON value.
func (v *Validator) ValidateValue(doc any) Result {
	err := v.schema.Validate(doc)
	if err == nil {
		return Result{Passed: true}
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return failure("", err.Error())
	}
	var out []FieldError
	collectLeaves(ve, &out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return Result{Errors: dedupe(out)}
}

// Check validates data and, when it passes, decodes it into a plan. A plan
// that matches the schema but still cannot be decoded fails as well.
func (v *Validator) Check(data []byte) (*domain.Plan, Result) {
	res := v.Validate(data)
	if !res.Passed {
		return nil, res
	}
	plan, err := domain.DecodePlan(data)
	if err != nil {
		return nil, failure("", err.Error())
	}
	return plan, res
}

// collectLeaves flattens the cause tree to the innermost errors, which
// name the concrete failing field.
func collectLeaves(ve *jsonschema.ValidationError, out *[]FieldError) {
	if len(ve.Causes) == 0 {
		*out = append(*out, FieldError{Location: ve.InstanceLocation, Message: ve.Message})
		return
	}
	for _, c := range ve.Causes {
		collectLeaves(c, out)
	}
}

func dedupe(errs []FieldError) []FieldError {
	seen := make(map[FieldError]bool, len(errs))
	out := errs[:0]
	for _, e := range errs {
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func failure(loc, msg string) Result {
	return Result{Errors: []FieldError{{Location: loc, Message: msg}}}
}
