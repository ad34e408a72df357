package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Fetcher loads image bytes from a URL, a data URI or a local path
type Fetcher struct {
	http *resty.Client
}

// NewFetcher creates a fetcher whose HTTP requests time out after timeout
func NewFetcher(timeout time.Duration) *Fetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(1).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= 500
		})
	return &Fetcher{http: client}
}

// Fetch returns the raw bytes behind source
func (f *Fetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	switch {
	case source == "":
		return nil, errors.New("empty image source")
	case strings.HasPrefix(source, "data:"):
		return decodeDataURI(source)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		resp, err := f.http.R().SetContext(ctx).Get(source)
		if err != nil {
			return nil, fmt.Errorf("fetch image: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("fetch image: %s", resp.Status())
		}
		return resp.Body(), nil
	default:
		data, err := os.ReadFile(strings.TrimPrefix(source, "file://"))
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		return data, nil
	}
}

func decodeDataURI(uri string) ([]byte, error) {
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, errors.New("malformed data uri")
	}
	meta, payload := uri[len("data:"):comma], uri[comma+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, errors.New("data uri is not base64")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data uri: %w", err)
	}
	return data, nil
}

// Decode decodes png, jpeg, gif, bmp or webp data
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
