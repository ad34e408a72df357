package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeSource) Fetch(_ context.Context, _ string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, uniform(w, h, c)))
	return buf.Bytes()
}

func TestProcessorPrepare(t *testing.T) {
	src := &fakeSource{data: pngBytes(t, 1000, 100, color.Black)}
	p := NewProcessor(src, NewLogoCache(), zap.NewNop())

	logo := p.Prepare(context.Background(), "https://example.test/logo.png", Wide)
	require.True(t, logo.Ready)
	assert.Equal(t, 576, logo.PixelWidth)
	assert.Equal(t, 57, logo.Height)
	assert.Len(t, logo.Raster, 576/8*57)
	assert.Equal(t, 200, logo.DisplayWidth)

	again := p.Prepare(context.Background(), "https://example.test/logo.png", Wide)
	assert.Equal(t, logo, again)
	assert.Equal(t, 1, src.calls, "second lookup served from cache")

	p.Prepare(context.Background(), "https://example.test/logo.png", Narrow)
	assert.Equal(t, 2, src.calls)
}

func TestProcessorFailureIsRetried(t *testing.T) {
	src := &fakeSource{err: errors.New("network down")}
	p := NewProcessor(src, NewLogoCache(), zap.NewNop())

	logo := p.Prepare(context.Background(), "logo.png", Narrow)
	assert.False(t, logo.Ready)
	assert.Nil(t, logo.Raster)

	src.err = nil
	src.data = pngBytes(t, 64, 64, color.White)
	logo = p.Prepare(context.Background(), "logo.png", Narrow)
	assert.True(t, logo.Ready)
	assert.Equal(t, 2, src.calls)
}

func TestProcessorUndecodable(t *testing.T) {
	p := NewProcessor(&fakeSource{data: []byte("not an image")}, NewLogoCache(), zap.NewNop())
	logo := p.Prepare(context.Background(), "x", Narrow)
	assert.False(t, logo.Ready)
	assert.Nil(t, logo.Raster)
}

func TestProcessorEmptySource(t *testing.T) {
	src := &fakeSource{}
	p := NewProcessor(src, NewLogoCache(), zap.NewNop())
	logo := p.Prepare(context.Background(), "", Narrow)
	assert.False(t, logo.Ready)
	assert.Zero(t, src.calls)
}

func TestFetcher(t *testing.T) {
	img := pngBytes(t, 16, 16, color.Black)
	f := NewFetcher(2 * time.Second)
	ctx := context.Background()

	t.Run("DataURI", func(t *testing.T) {
		data, err := f.Fetch(ctx, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(img))
		require.NoError(t, err)
		assert.Equal(t, img, data)

		_, err = f.Fetch(ctx, "data:image/png,raw")
		assert.Error(t, err)
	})

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logo.png")
		require.NoError(t, os.WriteFile(path, img, 0o644))
		data, err := f.Fetch(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, img, data)
	})

	t.Run("HTTP", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/missing.png" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write(img)
		}))
		defer srv.Close()

		data, err := f.Fetch(ctx, srv.URL+"/logo.png")
		require.NoError(t, err)
		assert.Equal(t, img, data)

		_, err = f.Fetch(ctx, srv.URL+"/missing.png")
		assert.Error(t, err)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := f.Fetch(ctx, "")
		assert.Error(t, err)
	})
}
