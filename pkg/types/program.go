// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the equeo-export pipeline:
// the learning program tree returned by the platform API, longread pages and
// their content, and per-stage configuration.
package types

// MaterialTypeLongread is the material type the exporter keeps.
const MaterialTypeLongread = "longread"

// Program is a learning program: a top-level course container holding
// ordered sections and materials.
type Program struct {
	ID       int64     `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Order    int       `json:"order" yaml:"order"`
	Sections []Section `json:"sections" yaml:"sections"`
}

// Section groups materials inside a program.
type Section struct {
	ID        int64      `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	Order     int        `json:"order" yaml:"order"`
	Materials []Material `json:"materials" yaml:"materials"`
}

// Material is a single item in a section. Only longread materials carry
// reading content.
type Material struct {
	ID    int64  `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Order int    `json:"order" yaml:"order"`
	// Type is filled from the materials endpoint; the program listing omits it.
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
}

// MaterialCount returns the number of materials across all sections.
func (p Program) MaterialCount() int {
	n := 0
	for _, s := range p.Sections {
		n += len(s.Materials)
	}
	return n
}

// LongreadPage identifies one page of a longread.
type LongreadPage struct {
	LongreadID int64  `json:"longread_id" yaml:"longread_id"`
	UUID       string `json:"uuid" yaml:"uuid"`
	Title      string `json:"title,omitempty" yaml:"title,omitempty"`
}

// LongreadContent is the Markdown body of one longread page.
type LongreadContent struct {
	LongreadID int64  `json:"longread_id" yaml:"longread_id"`
	UUID       string `json:"uuid" yaml:"uuid"`
	Body       string `json:"body" yaml:"body"`
}
