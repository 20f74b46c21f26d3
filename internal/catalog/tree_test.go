package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeMirrorsAddressing(t *testing.T) {
	snap, _ := Build(
		[]CategoryRecord{{ID: "rolls"}, {ID: "sushi"}},
		[]ProductRecord{
			{Slug: "cal1", Category: "rolls", Price: 320, Name: PlainName("California")},
			{Slug: "nig1", Category: "sushi", Subcategory: "nigiri", Price: 90, Name: PlainName("Salmon")},
		},
		BuildOptions{},
	)

	tree := snap.Tree()
	require.Len(t, tree.Categories, 2)
	assert.Equal(t, snap.Layout(), tree.Layout)

	rolls := tree.Categories[0]
	assert.Equal(t, "flat", rolls.Kind)
	assert.Empty(t, rolls.Groups)
	assert.Equal(t, []TreeProduct{{Index: 0, Slug: "cal1", Name: "California", Price: 320}}, rolls.Products)

	sushi := tree.Categories[1]
	assert.Equal(t, "grouped", sushi.Kind)
	require.Len(t, sushi.Groups, 1)
	assert.Equal(t, "nigiri", sushi.Groups[0].ID)
	assert.Equal(t, "nig1", sushi.Groups[0].Products[0].Slug)

	var empty *Snapshot
	assert.Empty(t, empty.Tree().Categories)
}
