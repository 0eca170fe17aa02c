package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_CaseAndWhitespaceInsensitive(t *testing.T) {
	cols, missing := PriceBookSchema().Resolve([]string{" sku ", "SKU NAME", "Quantity", "net RATE"})
	assert.Empty(t, missing)
	assert.Equal(t, 0, cols[FieldBillingTerm])
	assert.Equal(t, 1, cols[FieldProduct])
	assert.Equal(t, 2, cols[FieldQuantity])
	assert.Equal(t, 3, cols[FieldUnitPrice])
}

func TestResolve_ColumnOrderIrrelevant(t *testing.T) {
	cols, missing := PriceBookSchema().Resolve([]string{"NET RATE", "Quantity", "SKU"})
	assert.Empty(t, missing)
	assert.Equal(t, 2, cols[FieldBillingTerm])
	assert.Equal(t, 0, cols[FieldUnitPrice])
}

func TestResolve_MissingRequired(t *testing.T) {
	_, missing := PriceBookSchema().Resolve([]string{"SKU", "SKU Name"})
	assert.ElementsMatch(t, []Field{FieldQuantity, FieldUnitPrice}, missing)
}

func TestResolve_FirstAliasWins(t *testing.T) {
	cols, _ := PriceBookSchema().Resolve([]string{"Price", "NET RATE", "SKU", "Quantity"})
	// "net rate" is listed before "price" in the alias chain.
	assert.Equal(t, 1, cols[FieldUnitPrice])
}

func TestWithRequired(t *testing.T) {
	s := PriceBookSchema().WithRequired(FieldCustomerKey, FieldBillingTerm)
	_, missing := s.Resolve([]string{"SKU"})
	assert.Equal(t, []Field{FieldCustomerKey}, missing)
}

func TestLoadAliases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"aliases:\n  unit_price:\n    - \"Precio Neto\"\n  billing_term_id:\n    - \"Codigo\"\n",
	), 0o600))

	s, err := LoadAliases(PriceBookSchema(), path)
	require.NoError(t, err)

	cols, missing := s.Resolve([]string{"Codigo", "Precio Neto", "Quantity"})
	assert.Empty(t, missing)
	assert.Equal(t, 0, cols[FieldBillingTerm])
	assert.Equal(t, 1, cols[FieldUnitPrice])
}

func TestLoadAliases_MissingFile(t *testing.T) {
	_, err := LoadAliases(PriceBookSchema(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
