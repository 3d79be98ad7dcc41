// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pdiddy/equeo-export/pkg/types"
)

const (
	pathLearningPrograms = "/learning-programs"
	pathMaterials        = "/materials-cr"
	pathPageTitles       = "/materials/longreads/pages/titles"
	pathPage             = "/materials/longreads/page"
)

type programsPayload struct {
	LearningPrograms []types.Program `json:"learning_programs"`
	Meta             meta            `json:"meta"`
}

// LearningPrograms returns every learning program of the module, in the
// order the API first lists them. A program that appears on more than one
// page keeps its first position and the data of its last occurrence.
func (c *Client) LearningPrograms(ctx context.Context, moduleID string) ([]types.Program, error) {
	if moduleID == "" {
		return nil, fmt.Errorf("getting learning programs: module id is empty")
	}

	var programs []types.Program
	index := make(map[int64]int)

	err := paginate(ctx, func(page int) (int, error) {
		q := pageQuery(page)
		q.Set("module_id", moduleID)

		var env envelope[programsPayload]
		if err := c.do(ctx, http.MethodGet, pathLearningPrograms, q, nil, &env); err != nil {
			return 0, err
		}
		for _, p := range env.Success.LearningPrograms {
			if i, ok := index[p.ID]; ok {
				programs[i] = p
				continue
			}
			index[p.ID] = len(programs)
			programs = append(programs, p)
		}
		return env.Success.Meta.Pagination.PagesCount, nil
	})
	if err != nil {
		return nil, fmt.Errorf("getting learning programs: %w", err)
	}
	return programs, nil
}

type materialsRequest struct {
	Materials []int64 `json:"materials"`
}

type materialsPayload struct {
	Materials []types.Material `json:"materials"`
	Meta      meta             `json:"meta"`
}

// LongreadIDs resolves material ids to their types and returns the ids of
// the longread materials, in response order.
func (c *Client) LongreadIDs(ctx context.Context, materialIDs []int64) ([]int64, error) {
	body := materialsRequest{Materials: nonNil(materialIDs)}
	var ids []int64

	err := paginate(ctx, func(page int) (int, error) {
		var env envelope[materialsPayload]
		if err := c.do(ctx, http.MethodPost, pathMaterials, pageQuery(page), body, &env); err != nil {
			return 0, err
		}
		for _, m := range env.Success.Materials {
			if m.Type == types.MaterialTypeLongread {
				ids = append(ids, m.ID)
			}
		}
		return env.Success.Meta.Pagination.PagesCount, nil
	})
	if err != nil {
		return nil, fmt.Errorf("getting longread ids: %w", err)
	}
	return ids, nil
}

type pageTitlesRequest struct {
	Longreads []int64 `json:"longreads"`
}

type pageTitlesPayload struct {
	PageTitles []types.LongreadPage `json:"page_titles"`
	Meta       meta                 `json:"meta"`
}

// LongreadPages lists the pages (uuid and title) of the given longreads.
// A longread with several pages yields several entries, in response order.
func (c *Client) LongreadPages(ctx context.Context, longreadIDs []int64) ([]types.LongreadPage, error) {
	body := pageTitlesRequest{Longreads: nonNil(longreadIDs)}
	var pages []types.LongreadPage

	err := paginate(ctx, func(page int) (int, error) {
		var env envelope[pageTitlesPayload]
		if err := c.do(ctx, http.MethodPost, pathPageTitles, pageQuery(page), body, &env); err != nil {
			return 0, err
		}
		pages = append(pages, env.Success.PageTitles...)
		return env.Success.Meta.Pagination.PagesCount, nil
	})
	if err != nil {
		return nil, fmt.Errorf("getting longread uuids: %w", err)
	}
	return pages, nil
}

type pageRequest struct {
	Longread int64  `json:"longread"`
	Page     string `json:"page"`
}

type pagePayload struct {
	Page struct {
		Body string `json:"body"`
	} `json:"page"`
}

// PageBody fetches the Markdown body of one longread page.
func (c *Client) PageBody(ctx context.Context, page types.LongreadPage) (string, error) {
	body := pageRequest{Longread: page.LongreadID, Page: page.UUID}

	var env envelope[pagePayload]
	if err := c.do(ctx, http.MethodPost, pathPage, nil, body, &env); err != nil {
		return "", fmt.Errorf("getting longread content %d/%s: %w", page.LongreadID, page.UUID, err)
	}
	return env.Success.Page.Body, nil
}

// nonNil keeps empty id lists encoded as [] rather than null.
func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
