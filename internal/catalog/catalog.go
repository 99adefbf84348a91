// Package catalog holds the read-only operation catalogue: which backend
// operations exist per domain, their shapes, and which fields must come
// from a dependent lookup.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

// Selection shapes
const (
	ShapeFlat   = "flat"
	ShapeNested = "nested"
)

// Selection describes how a picked option's identifier is written into the
// target operation's parameters
type Selection struct {
	Field         string `yaml:"field"`
	Shape         string `yaml:"shape"`          // flat or nested
	ArrayField    string `yaml:"array_field"`    // nested only, e.g. items
	QuantityField string `yaml:"quantity_field"` // nested only, e.g. quantity
}

// Operation is one callable backend capability
type Operation struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Description    string   `yaml:"description"`
	Method         string   `yaml:"method"`
	Endpoint       string   `yaml:"endpoint"`
	RequiredFields []string `yaml:"required_fields"`
	OptionalFields []string `yaml:"optional_fields"`
	// DependentFields maps a field to the lookup operation that supplies it
	DependentFields map[string]string `yaml:"dependent_fields"`
	DisplayFormat   string            `yaml:"display_format"`
	NameField       string            `yaml:"name_field"`
	IDField         string            `yaml:"id_field"`
	Selection       *Selection        `yaml:"selection"`
	Examples        []string          `yaml:"examples"`

	Domain string `yaml:"-"`
}

// IsRead reports whether params travel as a query string
func (o *Operation) IsRead() bool {
	m := strings.ToUpper(o.Method)
	return m == "GET" || m == "DELETE"
}

// DependentOperationIDs lists the lookup operations in field order
func (o *Operation) DependentOperationIDs() []string {
	fields := make([]string, 0, len(o.DependentFields))
	for f := range o.DependentFields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	seen := map[string]bool{}
	var ids []string
	for _, f := range fields {
		id := o.DependentFields[f]
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// FieldForDependent returns the field a dependent lookup supplies
func (o *Operation) FieldForDependent(depID string) (string, bool) {
	fields := make([]string, 0, len(o.DependentFields))
	for f := range o.DependentFields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		if o.DependentFields[f] == depID {
			return f, true
		}
	}
	return "", false
}

// DependentForField returns the lookup operation that supplies field. The
// array field of a nested selection resolves through the selection field.
func (o *Operation) DependentForField(field string) (string, bool) {
	if dep, ok := o.DependentFields[field]; ok {
		return dep, true
	}
	if s := o.Selection; s != nil && s.Shape == ShapeNested && s.ArrayField == field {
		dep, ok := o.DependentFields[s.Field]
		return dep, ok
	}
	return "", false
}

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// PathParams returns the {name} placeholders of the endpoint template
func (o *Operation) PathParams() []string {
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(o.Endpoint, -1) {
		names = append(names, m[1])
	}
	return names
}

// Domain groups the operations one specialist may use
type Domain struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Guidance    string      `yaml:"guidance"`
	Examples    []string    `yaml:"examples"`
	Operations  []Operation `yaml:"operations"`
}

type file struct {
	Domains []Domain `yaml:"domains"`
}

// Catalog is safe for concurrent reads once loaded
type Catalog struct {
	domains    map[string]*Domain
	order      []string
	operations map[string]*Operation
}

// Load reads a catalogue from a YAML file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Default returns the catalogue compiled into the binary
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse builds a catalogue from YAML bytes and validates it
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{
		domains:    make(map[string]*Domain),
		operations: make(map[string]*Operation),
	}
	for i := range f.Domains {
		d := &f.Domains[i]
		if d.Name == "" {
			return nil, fmt.Errorf("domain #%d has no name", i)
		}
		if _, dup := c.domains[d.Name]; dup {
			return nil, fmt.Errorf("duplicate domain %q", d.Name)
		}
		c.domains[d.Name] = d
		c.order = append(c.order, d.Name)
		for j := range d.Operations {
			op := &d.Operations[j]
			op.Domain = d.Name
			if op.ID == "" || op.Endpoint == "" || op.Method == "" {
				return nil, fmt.Errorf("domain %s: operation #%d needs id, method and endpoint", d.Name, j)
			}
			if _, dup := c.operations[op.ID]; dup {
				return nil, fmt.Errorf("duplicate operation %q", op.ID)
			}
			op.Method = strings.ToUpper(op.Method)
			c.operations[op.ID] = op
		}
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	for _, op := range c.operations {
		for field, dep := range op.DependentFields {
			if _, ok := c.operations[dep]; !ok {
				return fmt.Errorf("operation %s: field %s depends on unknown operation %s", op.ID, field, dep)
			}
		}
		if s := op.Selection; s != nil {
			if s.Field == "" {
				return fmt.Errorf("operation %s: selection needs a field", op.ID)
			}
			if s.Shape == ShapeNested && s.ArrayField == "" {
				return fmt.Errorf("operation %s: nested selection needs array_field", op.ID)
			}
		}
	}
	return nil
}

// GetOperation looks an operation up by id
func (c *Catalog) GetOperation(id string) (*Operation, bool) {
	op, ok := c.operations[id]
	return op, ok
}

// GetDomain looks a domain up by name
func (c *Catalog) GetDomain(name string) (*Domain, bool) {
	d, ok := c.domains[name]
	return d, ok
}

// Domains returns domains in file order
func (c *Catalog) Domains() []*Domain {
	out := make([]*Domain, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.domains[name])
	}
	return out
}

// OperationCount is used for startup logging
func (c *Catalog) OperationCount() int {
	return len(c.operations)
}

// RenderTemplate fills {field} placeholders from a record. It reports false
// when any placeholder has no value.
func RenderTemplate(format string, record map[string]any) (string, bool) {
	complete := true
	out := placeholderRe.ReplaceAllStringFunc(format, func(m string) string {
		key := m[1 : len(m)-1]
		v, ok := record[key]
		if !ok || v == nil {
			complete = false
			return ""
		}
		return fmt.Sprint(v)
	})
	return out, complete
}
