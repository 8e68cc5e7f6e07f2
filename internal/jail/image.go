package jail

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const dataURIPrefix = "data:image/"

// Image holds a resolved image payload. Bytes are never persisted; they are
// fetched and resolved per display request.
type Image struct {
	Data      []byte
	Extension string
}

// ResolveImage interprets the image field of a details record. Three shapes
// are accepted, tried in order: an absolute URL, a base64 data-URI, and a
// raw base64 blob. Any decode or download failure is logged and reported as
// "no image available"; a missing image is never fatal.
func (c *Client) ResolveImage(ctx context.Context, field string) (Image, bool) {
	field = strings.TrimSpace(field)
	if field == "" {
		return Image{}, false
	}

	if strings.HasPrefix(field, "http://") || strings.HasPrefix(field, "https://") {
		return c.downloadImage(ctx, field)
	}

	if strings.HasPrefix(field, dataURIPrefix) {
		return c.decodeDataURI(field)
	}

	data, err := base64.StdEncoding.DecodeString(field)
	if err != nil {
		c.logger.Warn("image payload is not valid base64", zap.Error(err))
		return Image{}, false
	}
	return Image{Data: data, Extension: "png"}, true
}

func (c *Client) downloadImage(ctx context.Context, imageURL string) (Image, bool) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		c.logger.Warn("image download request failed", zap.Error(err))
		return Image{}, false
	}
	response, err := c.httpClient.Do(request)
	if err != nil {
		c.logger.Warn("image download failed", zap.String("url", imageURL), zap.Error(err))
		return Image{}, false
	}
	defer response.Body.Close()
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		c.logger.Warn("image download returned unexpected status",
			zap.String("url", imageURL),
			zap.Int("status", response.StatusCode))
		return Image{}, false
	}
	data, err := io.ReadAll(response.Body)
	if err != nil {
		c.logger.Warn("image download read failed", zap.Error(err))
		return Image{}, false
	}
	extension := "jpg"
	if strings.Contains(response.Header.Get("Content-Type"), "png") {
		extension = "png"
	}
	return Image{Data: data, Extension: extension}, true
}

func (c *Client) decodeDataURI(field string) (Image, bool) {
	remainder := strings.TrimPrefix(field, dataURIPrefix)
	subtype, encoded, found := strings.Cut(remainder, ";base64,")
	if !found {
		c.logger.Warn("image data-uri missing base64 marker")
		return Image{}, false
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		c.logger.Warn("image data-uri decode failed", zap.Error(err))
		return Image{}, false
	}
	extension := strings.TrimSpace(subtype)
	if extension == "" {
		extension = "png"
	}
	return Image{Data: data, Extension: extension}, true
}

// ContentType maps a resolved extension to its HTTP content type.
func (i Image) ContentType() string {
	if i.Extension == "png" {
		return "image/png"
	}
	return "image/jpeg"
}
