package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		valueType string
		expected  interface{}
		wantErr   bool
	}{
		{"Text passthrough", "Drain Cleaning", "TEXT", "Drain Cleaning", false},
		{"Integer", "45", "INT", 45, false},
		{"Invalid integer", "forty-five", "INT", nil, true},
		{"Numeric", "129.99", "NUMERIC", 129.99, false},
		{"Numeric with currency formatting", "$1,250.00", "NUMERIC", 1250.00, false},
		{"Invalid numeric", "n/a", "NUMERIC", nil, true},
		{"Bool yes", "Yes", "BOOL", true, false},
		{"Bool one", "1", "BOOL", true, false},
		{"Bool no", "no", "BOOL", false, false},
		{"Optional marker stripped", "30", "INT?", 30, false},
		{"Unknown type passthrough", "raw", "UNKNOWN", "raw", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseValue(tt.value, tt.valueType)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCanonicalColumn(t *testing.T) {
	config := defaultMappingConfig().Sheets["Catalog"]

	tests := []struct {
		header   string
		expected string
	}{
		{"SkuCode", "SkuCode"},
		{"sku code", "SkuCode"},
		{"SKU", "SkuCode"},
		{"Unit Price", "Price"},
		{"Trade", "Category"},
		{"Duration (min)", "Duration"},
		{"Unmapped Column", ""},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.expected, canonicalColumn(tt.header, config))
		})
	}
}

func TestBuildSkuRow(t *testing.T) {
	mapping := defaultMappingConfig()
	config := mapping.Sheets["Catalog"]
	categories := map[string]string{
		"plumbing": "a1f2b3c4-0000-0000-0000-000000000001",
	}

	t.Run("Full row", func(t *testing.T) {
		row := map[string]string{
			"SkuCode":     "PLB-001",
			"Name":        "Drain Cleaning",
			"Description": "Snake main line",
			"Category":    "Plumbing",
			"Price":       "189.00",
			"Duration":    "90",
			"Active":      "yes",
			"AllowAddons": "true",
		}

		sku, err := buildSkuRow(row, config, mapping.Defaults, categories)
		require.NoError(t, err)
		assert.Equal(t, "PLB-001", sku.SkuCode)
		assert.Equal(t, "Drain Cleaning", sku.Name)
		assert.Equal(t, "a1f2b3c4-0000-0000-0000-000000000001", sku.Category)
		assert.Equal(t, 189.00, sku.Price)
		require.NotNil(t, sku.EstimatedDurationMinutes)
		assert.Equal(t, 90, *sku.EstimatedDurationMinutes)
		assert.True(t, sku.IsActive)
		assert.True(t, sku.IsAddonAllowed)
	})

	t.Run("Defaults apply when optional columns absent", func(t *testing.T) {
		row := map[string]string{
			"SkuCode":  "PLB-002",
			"Name":     "Faucet Replacement",
			"Category": "Plumbing",
			"Price":    "120",
		}

		sku, err := buildSkuRow(row, config, mapping.Defaults, categories)
		require.NoError(t, err)
		assert.True(t, sku.IsActive)
		assert.False(t, sku.IsAddonAllowed)
		assert.Nil(t, sku.Description)
		assert.Nil(t, sku.EstimatedDurationMinutes)
	})

	t.Run("Missing required column", func(t *testing.T) {
		row := map[string]string{
			"SkuCode":  "PLB-003",
			"Category": "Plumbing",
			"Price":    "99",
		}

		_, err := buildSkuRow(row, config, mapping.Defaults, categories)
		assert.ErrorContains(t, err, "missing required column")
	})

	t.Run("Unknown category", func(t *testing.T) {
		row := map[string]string{
			"SkuCode":  "ELC-001",
			"Name":     "Panel Inspection",
			"Category": "Electrical",
			"Price":    "250",
		}

		_, err := buildSkuRow(row, config, mapping.Defaults, categories)
		assert.ErrorContains(t, err, "unknown service category")
	})

	t.Run("Negative price", func(t *testing.T) {
		row := map[string]string{
			"SkuCode":  "PLB-004",
			"Name":     "Refund",
			"Category": "Plumbing",
			"Price":    "-10",
		}

		_, err := buildSkuRow(row, config, mapping.Defaults, categories)
		assert.ErrorContains(t, err, "negative price")
	})
}

func TestLoadMappingConfigFallback(t *testing.T) {
	cfg, err := loadMappingConfig("does/not/exist.yaml")
	require.NoError(t, err)
	require.Contains(t, cfg.Sheets, "Catalog")
	assert.Equal(t, "sku_code", cfg.Sheets["Catalog"].Columns["SkuCode"].Field)
}
