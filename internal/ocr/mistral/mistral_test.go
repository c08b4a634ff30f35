package mistral

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func page() image.Image {
	return image.NewGray(image.Rect(0, 0, 4, 4))
}

func TestRecognize(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"pages":[{"index":0,"markdown":"# Invoice\r\n\r\n\r\n\r\nTotal: 42  \n![img-0.jpeg](img-0.jpeg)\nThanks\u200b"}]}`))
	}))
	defer srv.Close()

	e := New("key", WithEndpoint(srv.URL), WithModel("custom-ocr"))
	obs, err := e.Recognize(context.Background(), page())
	require.NoError(t, err)

	var lines []string
	for _, o := range obs {
		top, ok := o.Top()
		require.True(t, ok)
		lines = append(lines, top.Text)
	}
	assert.Equal(t, []string{"# Invoice", "Total: 42", "Thanks"}, lines)

	assert.Equal(t, "custom-ocr", got["model"])
	doc, ok := got["document"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "image_url", doc["type"])
	assert.True(t, strings.HasPrefix(doc["image_url"].(string), "data:image/png;base64,"))
}

func TestRecognizeErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New("key", WithEndpoint(srv.URL)).Recognize(context.Background(), page())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestRecognizeBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"pages":`))
	}))
	defer srv.Close()

	_, err := New("key", WithEndpoint(srv.URL)).Recognize(context.Background(), page())
	assert.Error(t, err)
}

func TestRecognizeMissingKey(t *testing.T) {
	_, err := New("").Recognize(context.Background(), page())
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestCleanOCRText(t *testing.T) {
	in := "Title\u00ad\r\nscan_01.png\nBody   \n\n\n\n\nEnd"
	assert.Equal(t, "Title\n\nBody\n\nEnd", cleanOCRText(in))
	assert.Equal(t, "", cleanOCRText(""))
}
