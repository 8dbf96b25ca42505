package catalog

import (
	"strings"
	"testing"

	"github.com/SigNoz/pcparts-store/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	components, err := Default()
	require.NoError(t, err)
	require.NotEmpty(t, components)

	byCategory := map[models.Category]int{}
	for _, c := range components {
		byCategory[c.Category]++
	}
	for _, cat := range models.Categories {
		assert.Positive(t, byCategory[cat], "category %s has no components", cat)
	}
}

func TestLoadRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"not json", `{`},
		{"unknown category", `[{"id":"x","name":"X","category":"monitor","price":1}]`},
		{"negative stock", `[{"id":"x","name":"X","category":"cpu","price":1,"stock":-2}]`},
		{"duplicate id", `[{"id":"x","name":"X","category":"cpu","price":1},{"id":"x","name":"Y","category":"gpu","price":1}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.json))
			assert.Error(t, err)
		})
	}
}

func TestLoadDecodesPrice(t *testing.T) {
	components, err := Load(strings.NewReader(`[{"id":"x","name":"X","category":"psu","price":54.99,"specifications":{"wattage":"600W"}}]`))
	require.NoError(t, err)
	require.Len(t, components, 1)
	assert.Equal(t, "54.99", components[0].Price.String())
}
