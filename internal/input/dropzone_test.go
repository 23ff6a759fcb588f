package input

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"resumeform/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLoader(path string) (*types.SelectedFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &types.SelectedFile{Name: filepath.Base(path), Size: int64(len(content)), Content: content, Path: path}, nil
}

func TestNewDropzone_Validation(t *testing.T) {
	n := NewNormalizer(&fakeDropView{}, "", nil)

	_, err := NewDropzone("", time.Second, n, readLoader, nil, nil)
	assert.Error(t, err)

	_, err = NewDropzone(t.TempDir(), time.Second, nil, readLoader, nil, nil)
	assert.Error(t, err)

	_, err = NewDropzone(t.TempDir(), time.Second, n, nil, nil, nil)
	assert.Error(t, err)
}

func TestDropzone_StartErrors(t *testing.T) {
	n := NewNormalizer(&fakeDropView{}, "", nil)

	dz, err := NewDropzone(filepath.Join(t.TempDir(), "missing"), time.Second, n, readLoader, nil, nil)
	require.NoError(t, err)
	assert.Error(t, dz.Start())

	f := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0600))
	dz, err = NewDropzone(f, time.Second, n, readLoader, nil, nil)
	require.NoError(t, err)
	assert.Error(t, dz.Start())
}

func TestDropzone_StartStop(t *testing.T) {
	n := NewNormalizer(&fakeDropView{}, "", nil)
	dz, err := NewDropzone(t.TempDir(), 50*time.Millisecond, n, readLoader, nil, nil)
	require.NoError(t, err)

	require.NoError(t, dz.Start())
	assert.True(t, dz.IsRunning())
	assert.Error(t, dz.Start(), "second start must fail")

	require.NoError(t, dz.Stop())
	assert.False(t, dz.IsRunning())
	require.NoError(t, dz.Stop(), "stop is idempotent")
}

func TestDropzone_DropSelectsFile(t *testing.T) {
	dir := t.TempDir()
	view := &fakeDropView{}
	n := NewNormalizer(view, "", nil)

	dropped := make(chan *types.SelectedFile, 1)
	dz, err := NewDropzone(dir, 100*time.Millisecond, n, readLoader, func(f *types.SelectedFile) {
		dropped <- f
	}, nil)
	require.NoError(t, err)
	require.NoError(t, dz.Start())
	defer func() { _ = dz.Stop() }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "cv.txt"), []byte("go engineer"), 0600))

	select {
	case f := <-dropped:
		assert.Equal(t, "cv.txt", f.Name)
		assert.Equal(t, []byte("go engineer"), f.Content)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for drop")
	}

	assert.Equal(t, "cv.txt", n.Selected().Name)
	assert.False(t, n.Highlighted())
	highlights := view.highlightCalls()
	require.NotEmpty(t, highlights)
	assert.True(t, highlights[0])
	assert.False(t, highlights[len(highlights)-1])
}

func TestDropzone_IgnoresTemporaryFiles(t *testing.T) {
	dir := t.TempDir()
	n := NewNormalizer(&fakeDropView{}, "", nil)

	dropped := make(chan *types.SelectedFile, 1)
	dz, err := NewDropzone(dir, 50*time.Millisecond, n, readLoader, func(f *types.SelectedFile) {
		dropped <- f
	}, nil)
	require.NoError(t, err)
	require.NoError(t, dz.Start())
	defer func() { _ = dz.Stop() }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "cv.pdf.part"), []byte("partial"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0600))

	select {
	case f := <-dropped:
		t.Fatalf("unexpected drop of %s", f.Name)
	case <-time.After(300 * time.Millisecond):
	}
	assert.Nil(t, n.Selected())
	assert.False(t, n.Highlighted())
}

func TestDropzone_RemovedBeforeSettleIsDragLeave(t *testing.T) {
	dir := t.TempDir()
	n := NewNormalizer(&fakeDropView{}, "", nil)

	dropped := make(chan *types.SelectedFile, 1)
	dz, err := NewDropzone(dir, 500*time.Millisecond, n, readLoader, func(f *types.SelectedFile) {
		dropped <- f
	}, nil)
	require.NoError(t, err)
	require.NoError(t, dz.Start())
	defer func() { _ = dz.Stop() }()

	path := filepath.Join(dir, "cv.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))
	require.NoError(t, os.Remove(path))

	select {
	case f := <-dropped:
		t.Fatalf("unexpected drop of %s", f.Name)
	case <-time.After(time.Second):
	}
	assert.Nil(t, n.Selected())
	assert.False(t, n.Highlighted())
}

func TestDropzone_LoaderFailureIsEmptyDrop(t *testing.T) {
	dir := t.TempDir()
	n := NewNormalizer(&fakeDropView{}, "", nil)

	failing := func(string) (*types.SelectedFile, error) { return nil, os.ErrPermission }
	dropped := make(chan *types.SelectedFile, 1)
	dz, err := NewDropzone(dir, 50*time.Millisecond, n, failing, func(f *types.SelectedFile) {
		dropped <- f
	}, nil)
	require.NoError(t, err)
	require.NoError(t, dz.Start())
	defer func() { _ = dz.Stop() }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "cv.txt"), []byte("x"), 0600))

	select {
	case <-dropped:
		t.Fatal("failed loads must not be accepted")
	case <-time.After(400 * time.Millisecond):
	}
	assert.Nil(t, n.Selected())
	assert.Eventually(t, func() bool { return !n.Highlighted() }, time.Second, 20*time.Millisecond)
}

func TestDropzone_RestartAfterStop(t *testing.T) {
	dir := t.TempDir()
	n := NewNormalizer(&fakeDropView{}, "", nil)

	dropped := make(chan *types.SelectedFile, 1)
	dz, err := NewDropzone(dir, 50*time.Millisecond, n, readLoader, func(f *types.SelectedFile) {
		dropped <- f
	}, nil)
	require.NoError(t, err)

	require.NoError(t, dz.Start())
	require.NoError(t, dz.Stop())

	require.NoError(t, dz.Start())
	assert.True(t, dz.IsRunning())
	defer func() { _ = dz.Stop() }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "second.txt"), []byte("rust engineer"), 0600))

	select {
	case f := <-dropped:
		assert.Equal(t, "second.txt", f.Name)
	case <-time.After(5 * time.Second):
		t.Fatal("restarted dropzone did not deliver the drop")
	}

	require.NoError(t, dz.Stop())
	assert.False(t, dz.IsRunning())
}
