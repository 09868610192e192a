package builtins

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// ImageSearch simulates a photo search API. URLs are derived from the query
// so repeated lookups return stable results.
type ImageSearch struct{}

func NewImageSearch() *ImageSearch { return &ImageSearch{} }

func (i *ImageSearch) Name() string        { return "images" }
func (i *ImageSearch) Description() string { return "finds photos for places and activities" }

// Call expects query and an optional count (1-10, default 3).
func (i *ImageSearch) Call(ctx context.Context, input map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := strings.TrimSpace(stringInput(input, "query"))
	if query == "" {
		return map[string]any{"images": []map[string]any{}}, nil
	}

	count := intInput(input, "count", 3)
	if count < 1 {
		count = 1
	}
	if count > 10 {
		count = 10
	}

	rng := seededRand("images|" + query)
	slug := url.PathEscape(strings.ToLower(strings.ReplaceAll(query, " ", "-")))

	images := make([]map[string]any, 0, count)
	for n := 0; n < count; n++ {
		id := rng.Intn(900000) + 100000
		images = append(images, map[string]any{
			"url":           fmt.Sprintf("https://images.travel-data.example/%s/%d.jpg", slug, id),
			"thumbnail_url": fmt.Sprintf("https://images.travel-data.example/%s/%d_thumb.jpg", slug, id),
			"title":         query,
			"width":         1600,
			"height":        1067,
		})
	}

	return map[string]any{"images": images}, nil
}
