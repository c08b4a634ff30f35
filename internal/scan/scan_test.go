package scan

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writePNG writes a w×1 image so tests can tell pages apart by width.
func writePNG(t *testing.T, dir, name string, w int) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, 1))
	img.SetGray(0, 0, color.Gray{Y: 255})
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func widths(pages []Page) []int {
	out := make([]int, len(pages))
	for i, p := range pages {
		out[i] = p.Image.Bounds().Dx()
	}
	return out
}

func TestAdapterFinished(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	a := NewAdapter(CapturerFunc(func(_ context.Context, d Delegate) {
		d.Finished([]Page{{Index: 7, Name: "a", Image: img}, {Index: 3, Name: "b", Image: img}})
	}))

	out := a.Scan(context.Background())
	require.Equal(t, KindPages, out.Kind)
	require.Len(t, out.Pages, 2)
	assert.Equal(t, 0, out.Pages[0].Index)
	assert.Equal(t, "a", out.Pages[0].Name)
	assert.Equal(t, 1, out.Pages[1].Index)
	assert.NoError(t, out.Err())
}

func TestAdapterEmptyScan(t *testing.T) {
	a := NewAdapter(CapturerFunc(func(_ context.Context, d Delegate) { d.Finished(nil) }))
	out := a.Scan(context.Background())
	assert.Equal(t, KindPages, out.Kind)
	assert.Empty(t, out.Pages)
}

func TestAdapterCancelled(t *testing.T) {
	a := NewAdapter(CapturerFunc(func(_ context.Context, d Delegate) { d.Cancelled() }))
	out := a.Scan(context.Background())
	assert.Equal(t, KindCancelled, out.Kind)
	assert.ErrorIs(t, out.Err(), ErrCancelled)
}

func TestAdapterFailed(t *testing.T) {
	boom := errors.New("camera unavailable")
	a := NewAdapter(CapturerFunc(func(_ context.Context, d Delegate) { d.Failed(boom) }))

	out := a.Scan(context.Background())
	assert.Equal(t, KindFailed, out.Kind)

	var fe *FailedError
	require.ErrorAs(t, out.Err(), &fe)
	assert.ErrorIs(t, out.Err(), boom)
	assert.Equal(t, "scan failed: camera unavailable", fe.Error())
}

func TestAdapterFirstSignalWins(t *testing.T) {
	a := NewAdapter(CapturerFunc(func(_ context.Context, d Delegate) {
		d.Cancelled()
		d.Finished([]Page{{Name: "late"}})
		d.Failed(errors.New("late"))
	}))
	assert.Equal(t, KindCancelled, a.Scan(context.Background()).Kind)
}

func TestAdapterContextCancelledBeforeSignal(t *testing.T) {
	started := make(chan struct{})
	// The capturer never signals, like a sheet the user walked away from.
	a := NewAdapter(CapturerFunc(func(ctx context.Context, d Delegate) {
		close(started)
		<-ctx.Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	done := make(chan Outcome, 1)
	go func() { done <- a.Scan(ctx) }()

	select {
	case out := <-done:
		assert.Equal(t, KindCancelled, out.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("scan did not return after cancellation")
	}
}

func TestAdapterMaxPages(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	a := NewAdapter(CapturerFunc(func(_ context.Context, d Delegate) {
		d.Finished([]Page{{Image: img}, {Image: img}, {Image: img}})
	}), WithMaxPages(2))

	out := a.Scan(context.Background())
	require.Equal(t, KindFailed, out.Kind)
	var tm *TooManyPagesError
	assert.ErrorAs(t, out.Err(), &tm)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "pages", KindPages.String())
	assert.Equal(t, "cancelled", KindCancelled.String())
	assert.Equal(t, "failed", KindFailed.String())
	assert.Equal(t, "unknown", Kind(42).String())
}

func TestScanID(t *testing.T) {
	assert.Empty(t, IDFromContext(context.Background()))
	ctx := ContextWithID(context.Background(), "abc")
	assert.Equal(t, "abc", IDFromContext(ctx))
}

func TestFileCapturerKeepsArgumentOrder(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writePNG(t, dir, "z.png", 3),
		writePNG(t, dir, "a.png", 1),
		writePNG(t, dir, "m.png", 2),
	}

	out := NewAdapter(FileCapturer{Paths: paths}).Scan(context.Background())
	require.Equal(t, KindPages, out.Kind)
	assert.Equal(t, []int{3, 1, 2}, widths(out.Pages))
	assert.Equal(t, "z.png", out.Pages[0].Name)
}

func TestFileCapturerUnreadablePage(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o600))

	out := NewAdapter(FileCapturer{Paths: []string{writePNG(t, dir, "ok.png", 1), bad}}).Scan(context.Background())
	require.Equal(t, KindFailed, out.Kind)

	var pe *PageError
	require.ErrorAs(t, out.Err(), &pe)
	assert.Equal(t, "bad.png", pe.Name)
}

func TestFileCapturerCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := NewAdapter(FileCapturer{Paths: []string{"whatever.png"}}).Scan(ctx)
	assert.Equal(t, KindCancelled, out.Kind)
}

func TestListImagesNumericOrder(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "page10.png", 10)
	writePNG(t, dir, "page2.png", 2)
	writePNG(t, dir, "page1.PNG", 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o755))

	paths, err := ListImages(dir)
	require.NoError(t, err)

	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{"page1.PNG", "page2.png", "page10.png"}, names)

	out := NewAdapter(DirCapturer{Dir: dir}).Scan(context.Background())
	require.Equal(t, KindPages, out.Kind)
	assert.Equal(t, []int{1, 2, 10}, widths(out.Pages))
}

func TestDirCapturerMissingDir(t *testing.T) {
	out := NewAdapter(DirCapturer{Dir: filepath.Join(t.TempDir(), "missing")}).Scan(context.Background())
	assert.Equal(t, KindFailed, out.Kind)
}

func TestIsImageFile(t *testing.T) {
	assert.True(t, IsImageFile("scan.JPG"))
	assert.True(t, IsImageFile("scan.tif"))
	assert.True(t, IsImageFile("scan.webp"))
	assert.False(t, IsImageFile("scan.pdf"))
	assert.False(t, IsImageFile("scan"))
}
