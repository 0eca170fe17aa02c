// Package ingest turns uploaded billing artifacts (price-book archives,
// prepaid and enterprise-support sheets) into normalized billing-term records.
package ingest

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Field identifies a logical input column, independent of what the header row
// actually calls it.
type Field string

const (
	FieldCustomerKey Field = "customer_key"
	FieldBillingTerm Field = "billing_term_id"
	FieldProduct     Field = "product_code"
	FieldQuantity    Field = "quantity"
	FieldUnitPrice   Field = "unit_price"
	FieldPercent     Field = "percent"
)

// Schema maps logical fields to the header names that may carry them.
// Matching is case-insensitive and whitespace-trimmed; source files come from
// several export tools and never agree on column order or exact spelling.
type Schema struct {
	Aliases  map[Field][]string
	Required []Field
}

// Columns maps resolved logical fields to column indexes for one sheet.
type Columns map[Field]int

// Resolve matches the header row against the schema. Missing required fields
// are returned by name so the caller can raise one MalformedInputError
// listing all of them.
func (s Schema) Resolve(header []string) (Columns, []Field) {
	normalized := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if key == "" {
			continue
		}
		if _, seen := normalized[key]; !seen {
			normalized[key] = i
		}
	}

	cols := make(Columns)
	for field, aliases := range s.Aliases {
		for _, alias := range aliases {
			if idx, ok := normalized[alias]; ok {
				cols[field] = idx
				break
			}
		}
	}

	var missing []Field
	for _, field := range s.Required {
		if _, ok := cols[field]; !ok {
			missing = append(missing, field)
		}
	}
	return cols, missing
}

// WithRequired returns a copy of the schema with a different required set.
func (s Schema) WithRequired(fields ...Field) Schema {
	out := Schema{Aliases: s.Aliases, Required: fields}
	return out
}

// PriceBookSchema describes a price-book sheet. Customer identity is not in
// the required set here: per-tenant archives carry the tenant in the filename
// and the normalizer promotes it to required only when no filename key exists.
func PriceBookSchema() Schema {
	return Schema{
		Aliases: map[Field][]string{
			FieldCustomerKey: {"tenant id", "tenant", "customer", "customer id"},
			FieldBillingTerm: {"sku", "sku code", "billing term", "billing term id"},
			FieldProduct:     {"sku name", "product", "product name", "sku description"},
			FieldQuantity:    {"quantity", "qty", "units"},
			FieldUnitPrice:   {"net rate", "unit price", "rate", "price"},
		},
		Required: []Field{FieldBillingTerm, FieldQuantity, FieldUnitPrice},
	}
}

// SupplementalSchema describes prepaid and enterprise-support sheets: one
// committed line per customer, identity required, amount columns optional
// with per-source defaults.
func SupplementalSchema() Schema {
	return Schema{
		Aliases: map[Field][]string{
			FieldCustomerKey: {"tenant id", "tenant", "customer", "customer id"},
			FieldQuantity:    {"quantity", "qty"},
			FieldUnitPrice:   {"amount", "net rate", "unit price", "committed amount"},
			FieldPercent:     {"enterprise support %", "support %", "percent"},
		},
		Required: []Field{FieldCustomerKey},
	}
}

type aliasFile struct {
	Aliases map[string][]string `yaml:"aliases"`
}

// LoadAliases merges operator-supplied header aliases from a YAML file into
// the schema, so new export formats can be absorbed without a rebuild. File
// aliases are tried after the built-in ones.
func LoadAliases(s Schema, path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return s, eris.Wrapf(err, "ingest: read alias file %s", path)
	}

	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return s, eris.Wrap(err, "ingest: parse alias file")
	}

	merged := Schema{Aliases: make(map[Field][]string, len(s.Aliases)), Required: s.Required}
	for field, aliases := range s.Aliases {
		merged.Aliases[field] = append([]string(nil), aliases...)
	}
	for name, aliases := range f.Aliases {
		field := Field(name)
		for _, alias := range aliases {
			merged.Aliases[field] = append(merged.Aliases[field], strings.ToLower(strings.TrimSpace(alias)))
		}
	}
	return merged, nil
}

func fieldNames(fields []Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
