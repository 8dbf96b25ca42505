package search

import (
	"fmt"
	"strings"
	"testing"

	"github.com/SigNoz/pcparts-store/internal/catalog"
	"github.com/SigNoz/pcparts-store/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gpu(id, name string, rating float64) models.Component {
	return models.Component{
		ID:       id,
		Name:     name,
		Brand:    "NVIDIA",
		Category: models.CategoryGPU,
		Rating:   rating,
		IsActive: true,
	}
}

func ids(components []models.Component) []string {
	out := make([]string, len(components))
	for i, c := range components {
		out[i] = c.ID
	}
	return out
}

func TestSearchScenario(t *testing.T) {
	idx := BuildIndex([]models.Component{
		gpu("rtx-4080", "NVIDIA GeForce RTX 4080", 4.6),
		gpu("rtx-4090", "NVIDIA GeForce RTX 4090", 4.7),
	})

	assert.Equal(t, []string{"rtx-4090"}, ids(idx.Search("RTX 4090", Options{})))
	assert.Equal(t, []string{"rtx-4090", "rtx-4080"}, ids(idx.Search("nvidia", Options{})))
}

func TestSearchShortQuery(t *testing.T) {
	idx := BuildIndex([]models.Component{gpu("rtx-4090", "NVIDIA GeForce RTX 4090", 4.7)})

	assert.Empty(t, idx.Search("", Options{}))
	assert.Empty(t, idx.Search("r", Options{}))
	assert.Empty(t, idx.Search("  r  ", Options{}))
}

func TestSearchEmptyCatalog(t *testing.T) {
	assert.Empty(t, BuildIndex(nil).Search("nvidia", Options{}))

	var idx *Index
	assert.Empty(t, idx.Search("nvidia", Options{}))
	assert.Zero(t, idx.Len())
}

func TestSearchSkipsInactive(t *testing.T) {
	inactive := gpu("rtx-3060", "NVIDIA GeForce RTX 3060", 4.3)
	inactive.IsActive = false
	idx := BuildIndex([]models.Component{inactive, gpu("rtx-4090", "NVIDIA GeForce RTX 4090", 4.7)})

	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, []string{"rtx-4090"}, ids(idx.Search("geforce", Options{})))
}

func TestSearchDropsSingleCharacterTerms(t *testing.T) {
	idx := BuildIndex([]models.Component{gpu("rtx-4090", "NVIDIA GeForce RTX 4090", 4.7)})

	assert.Equal(t, []string{"rtx-4090"}, ids(idx.Search("rtx x 4090", Options{})))
}

func TestSearchMatchesSpecsAndFeatures(t *testing.T) {
	c := gpu("rtx-4090", "NVIDIA GeForce RTX 4090", 4.7)
	c.Specifications = models.Specifications{"memory": "24GB GDDR6X"}
	c.KeyFeatures = models.StringList{"DLSS 3"}
	idx := BuildIndex([]models.Component{c})

	assert.Len(t, idx.Search("gddr6x", Options{}), 1)
	assert.Len(t, idx.Search("dlss", Options{}), 1)
	assert.Len(t, idx.Search("gpu nvidia", Options{}), 1)
	assert.Empty(t, idx.Search("gddr6x amd", Options{}))
}

func TestSearchSubstringNotWordMatch(t *testing.T) {
	idx := BuildIndex([]models.Component{gpu("rtx-4090", "NVIDIA GeForce RTX 4090", 4.7)})

	assert.Len(t, idx.Search("forc", Options{}), 1)
}

func TestSearchBound(t *testing.T) {
	var components []models.Component
	for i := 0; i < 25; i++ {
		components = append(components, gpu(fmt.Sprintf("gpu-%d", i), fmt.Sprintf("Graphics card %d", i), float64(i%5)))
	}
	idx := BuildIndex(components)

	assert.Len(t, idx.Search("graphics", Options{}), MaxResults)
	assert.Len(t, idx.Search("graphics", Options{Limit: 3}), 3)
	assert.Len(t, idx.Search("graphics", Options{Limit: 50}), MaxResults)
}

func TestSearchCategoryFilter(t *testing.T) {
	components, err := catalog.Default()
	require.NoError(t, err)
	idx := BuildIndex(components)

	for _, c := range idx.Search("amd", Options{Category: models.CategoryCPU}) {
		assert.Equal(t, models.CategoryCPU, c.Category)
	}
}

// Every result must contain every query term and be active, for any query over the seed catalog.
func TestSearchResultsContainAllTerms(t *testing.T) {
	components, err := catalog.Default()
	require.NoError(t, err)
	idx := BuildIndex(components)

	queries := []string{"nvidia", "ddr5", "am5", "rtx 40", "corsair gold", "atx wifi", "lga1700 intel", "nvme 2tb", "zz"}
	for _, q := range queries {
		results := idx.Search(q, Options{})
		assert.LessOrEqual(t, len(results), MaxResults)
		for _, c := range results {
			assert.True(t, c.IsActive)
			terms := SearchTerms(c)
			for _, term := range strings.Fields(strings.ToLower(q)) {
				if len(term) > 1 {
					assert.Contains(t, terms, term, "query %q result %s", q, c.ID)
				}
			}
		}
	}
}
