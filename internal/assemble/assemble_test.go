// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/equeo-export/pkg/types"
)

func fixtureProgram() types.Program {
	return types.Program{
		ID:   1,
		Name: "Курс",
		Sections: []types.Section{
			{ID: 20, Name: "Second", Order: 2, Materials: []types.Material{
				{ID: 201, Name: "Video", Order: 1},
				{ID: 202, Name: "Reading B", Order: 2},
			}},
			{ID: 10, Name: "First", Order: 1, Materials: []types.Material{
				{ID: 102, Name: "Reading A2", Order: 2},
				{ID: 101, Name: "Reading A1", Order: 1},
			}},
		},
	}
}

func TestMaterialIDs(t *testing.T) {
	assert.Equal(t, []int64{201, 202, 102, 101}, MaterialIDs(fixtureProgram()))
	assert.Empty(t, MaterialIDs(types.Program{}))
}

func TestFilterLongreads(t *testing.T) {
	p := fixtureProgram()
	got := FilterLongreads(p, []int64{202, 101, 102})

	require.Len(t, got.Sections, 2)
	assert.Equal(t, []types.Material{{ID: 202, Name: "Reading B", Order: 2}}, got.Sections[0].Materials)
	assert.Len(t, got.Sections[1].Materials, 2)

	// The input program is untouched.
	assert.Len(t, p.Sections[0].Materials, 2)
}

func TestFilterLongreads_NoneKept(t *testing.T) {
	got := FilterLongreads(fixtureProgram(), nil)
	for _, s := range got.Sections {
		assert.Empty(t, s.Materials)
	}
}

func TestShiftHeadings(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		level int
		want  string
	}{
		{"single heading", "# Title", 1, "## Title"},
		{"nested headings", "# A\ntext\n## B\n### C", 1, "## A\ntext\n### B\n#### C"},
		{"hash inside line untouched", "text with # hash\n#tag", 1, "text with # hash\n##tag"},
		{"indented not shifted", "  # not a heading start", 1, "  # not a heading start"},
		{"level two", "## X", 2, "#### X"},
		{"level zero", "# X", 0, "# X"},
		{"no headings", "plain\ntext", 1, "plain\ntext"},
		{"empty", "", 1, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShiftHeadings(tt.in, tt.level))
		})
	}
}

func TestDocument_OrderAndFormat(t *testing.T) {
	p := FilterLongreads(fixtureProgram(), []int64{101, 102, 202})
	contents := GroupContents([]types.LongreadContent{
		{LongreadID: 202, Body: "Body B"},
		{LongreadID: 101, Body: "# Intro\nBody A1"},
		{LongreadID: 102, Body: "Body A2"},
	})

	md, missing := Document(p, contents)
	assert.Empty(t, missing)

	want := "# Reading A1\n\n\n## Intro\nBody A1\n" +
		"# Reading A2\n\n\nBody A2\n" +
		"# Reading B\n\n\nBody B\n"
	assert.Equal(t, want, md)
}

func TestDocument_MultiPageLongread(t *testing.T) {
	p := types.Program{Sections: []types.Section{
		{Materials: []types.Material{{ID: 1, Name: "Long"}}},
	}}
	contents := GroupContents([]types.LongreadContent{
		{LongreadID: 1, UUID: "p1", Body: "page one"},
		{LongreadID: 1, UUID: "p2", Body: "## page two"},
	})

	md, _ := Document(p, contents)
	assert.Equal(t, "# Long\n\n\npage one\n\n### page two\n", md)
}

func TestDocument_MissingContentReported(t *testing.T) {
	p := types.Program{Sections: []types.Section{
		{Materials: []types.Material{{ID: 1, Name: "Has", Order: 1}, {ID: 2, Name: "Lacks", Order: 2}}},
	}}
	md, missing := Document(p, GroupContents([]types.LongreadContent{{LongreadID: 1, Body: "x"}}))
	assert.Equal(t, "# Has\n\n\nx\n", md)
	assert.Equal(t, []int64{2}, missing)
}

func TestDocument_StableTies(t *testing.T) {
	p := types.Program{Sections: []types.Section{
		{Order: 1, Materials: []types.Material{{ID: 1, Name: "first"}, {ID: 2, Name: "second"}}},
	}}
	contents := Contents{1: {"a"}, 2: {"b"}}
	md, _ := Document(p, contents)
	assert.Equal(t, "# first\n\n\na\n# second\n\n\nb\n", md)
}

func TestDocument_EmptyBodyStillEmitted(t *testing.T) {
	p := types.Program{Sections: []types.Section{{Materials: []types.Material{{ID: 1, Name: "Empty"}}}}}
	md, missing := Document(p, Contents{1: {""}})
	assert.Empty(t, missing)
	assert.Equal(t, "# Empty\n\n\n\n", md)
}

func TestWithTOC(t *testing.T) {
	assert.Equal(t, "[TOC] \n\n# A\n", WithTOC("# A\n"))
}

func TestContentsBody(t *testing.T) {
	c := Contents{5: {"one", "two"}}
	body, ok := c.Body(5)
	assert.True(t, ok)
	assert.Equal(t, "one\n\ntwo", body)

	_, ok = c.Body(6)
	assert.False(t, ok)
}
