// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble rebuilds a learning program's longreads into a single
// Markdown document: sections and materials in their configured order, each
// material under a top-level heading with its own headings pushed one level
// down.
package assemble

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pdiddy/equeo-export/pkg/types"
)

// TOCMarker is the placeholder the HTML renderer replaces with a table of
// contents.
const TOCMarker = "[TOC]"

// headingPattern matches a run of '#' at the start of any line.
var headingPattern = regexp.MustCompile(`(?m)^(#+)`)

// MaterialIDs returns the ids of all materials in the program, section by
// section, in API order.
func MaterialIDs(p types.Program) []int64 {
	ids := make([]int64, 0, p.MaterialCount())
	for _, s := range p.Sections {
		for _, m := range s.Materials {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// FilterLongreads returns a copy of p whose sections only keep materials
// whose id is in longreadIDs. Sections left empty are kept.
func FilterLongreads(p types.Program, longreadIDs []int64) types.Program {
	keep := make(map[int64]struct{}, len(longreadIDs))
	for _, id := range longreadIDs {
		keep[id] = struct{}{}
	}

	out := p
	out.Sections = make([]types.Section, len(p.Sections))
	for i, s := range p.Sections {
		s.Materials = filterMaterials(s.Materials, keep)
		out.Sections[i] = s
	}
	return out
}

func filterMaterials(ms []types.Material, keep map[int64]struct{}) []types.Material {
	var out []types.Material
	for _, m := range ms {
		if _, ok := keep[m.ID]; ok {
			out = append(out, m)
		}
	}
	return out
}

// ShiftHeadings pushes every Markdown ATX heading in md down by level.
func ShiftHeadings(md string, level int) string {
	if level <= 0 {
		return md
	}
	return headingPattern.ReplaceAllString(md, "${1}"+strings.Repeat("#", level))
}

// Contents groups fetched page bodies by longread id, keeping fetch order.
type Contents map[int64][]string

// GroupContents indexes page contents by longread id.
func GroupContents(pages []types.LongreadContent) Contents {
	c := make(Contents)
	for _, p := range pages {
		c[p.LongreadID] = append(c[p.LongreadID], p.Body)
	}
	return c
}

// Body returns the joined pages of a longread and whether any were fetched.
func (c Contents) Body(longreadID int64) (string, bool) {
	bodies, ok := c[longreadID]
	if !ok {
		return "", false
	}
	return strings.Join(bodies, "\n\n"), true
}

// Document renders the program as Markdown. Sections are ordered by their
// order field, and materials within a section likewise; ties keep API order.
// Materials with no fetched content are left out and their ids returned.
func Document(p types.Program, contents Contents) (md string, missing []int64) {
	sections := append([]types.Section(nil), p.Sections...)
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Order < sections[j].Order
	})

	var b strings.Builder
	for _, s := range sections {
		materials := append([]types.Material(nil), s.Materials...)
		sort.SliceStable(materials, func(i, j int) bool {
			return materials[i].Order < materials[j].Order
		})

		for _, m := range materials {
			body, ok := contents.Body(m.ID)
			if !ok {
				missing = append(missing, m.ID)
				continue
			}
			b.WriteString("# ")
			b.WriteString(m.Name)
			b.WriteString("\n\n\n")
			b.WriteString(ShiftHeadings(body, 1))
			b.WriteString("\n")
		}
	}
	return b.String(), missing
}

// WithTOC prefixes md with the table of contents marker.
func WithTOC(md string) string {
	return TOCMarker + " \n\n" + md
}
