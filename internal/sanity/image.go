package sanity

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const cdnBase = "https://cdn.sanity.io"

// ErrInvalidImageRef is returned for references that are not image asset ids.
var ErrInvalidImageRef = errors.New("sanity: invalid image reference")

// image-<assetId>-<width>x<height>-<format>
var imageRefPattern = regexp.MustCompile(`^image-([A-Za-z0-9]+)-(\d+x\d+)-([a-z0-9]+)$`)

// ImageURLBuilder turns image asset references into CDN URLs.
type ImageURLBuilder struct {
	projectID string
	dataset   string
	baseURL   string
}

// NewImageURLBuilder returns a builder for the given project and dataset.
func NewImageURLBuilder(projectID, dataset string) *ImageURLBuilder {
	return &ImageURLBuilder{projectID: projectID, dataset: dataset, baseURL: cdnBase}
}

// URL resolves ref to a URL sized to width x height. Zero dimensions are
// left out of the query. Absolute http(s) URLs are returned unchanged.
func (b *ImageURLBuilder) URL(ref string, width, height int) (string, error) {
	if strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://") {
		return ref, nil
	}

	m := imageRefPattern.FindStringSubmatch(ref)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidImageRef, ref)
	}
	assetID, dims, format := m[1], m[2], m[3]

	u := fmt.Sprintf("%s/images/%s/%s/%s-%s.%s", b.baseURL, b.projectID, b.dataset, assetID, dims, format)

	q := url.Values{}
	if width > 0 {
		q.Set("w", fmt.Sprint(width))
	}
	if height > 0 {
		q.Set("h", fmt.Sprint(height))
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u, nil
}
