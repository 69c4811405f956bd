package storage_test

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogue/internal/storage"
)

// uploadHeader builds a real multipart.FileHeader the way a request would.
func uploadHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(32 << 20)
	require.NoError(t, err)
	require.NotEmpty(t, form.File["image"])
	return form.File["image"][0]
}

func TestImageStore_SaveWritesFileAndReturnsURL(t *testing.T) {
	root := t.TempDir()
	store := storage.NewImageStore(root)

	content := []byte("fake png bytes")
	url, err := store.Save(uploadHeader(t, "photo.png", "image/png", content))

	assert.NoError(t, err)
	assert.Regexp(t, `^/uploads/[0-9a-f-]{36}\.png$`, url)

	written, err := os.ReadFile(filepath.Join(root, "public", "uploads", filepath.Base(url)))
	assert.NoError(t, err)
	assert.Equal(t, content, written)
}

func TestImageStore_SaveCreatesUploadDirectory(t *testing.T) {
	root := t.TempDir()
	store := storage.NewImageStore(root)

	_, err := store.Save(uploadHeader(t, "photo.jpg", "image/jpeg", []byte("x")))
	assert.NoError(t, err)

	info, err := os.Stat(filepath.Join(root, "public", "uploads"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestImageStore_ExtensionFollowsContentType(t *testing.T) {
	store := storage.NewImageStore(t.TempDir())

	url, err := store.Save(uploadHeader(t, "whatever.dat", "image/jpeg", []byte("x")))
	assert.NoError(t, err)
	assert.Regexp(t, `\.jpg$`, url)

	// Unknown content type falls back to the client filename extension.
	url, err = store.Save(uploadHeader(t, "scan.tiff", "application/octet-stream", []byte("x")))
	assert.NoError(t, err)
	assert.Regexp(t, `\.tiff$`, url)
}

func TestImageStore_UniqueFilenames(t *testing.T) {
	store := storage.NewImageStore(t.TempDir())

	first, err := store.Save(uploadHeader(t, "photo.png", "image/png", []byte("a")))
	require.NoError(t, err)
	second, err := store.Save(uploadHeader(t, "photo.png", "image/png", []byte("b")))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestImageStore_RejectsMalformedUploads(t *testing.T) {
	store := storage.NewImageStore(t.TempDir())

	_, err := store.Save(nil)
	assert.ErrorIs(t, err, storage.ErrInvalidUpload)

	_, err = store.Save(uploadHeader(t, "named.png", "image/png", nil))
	assert.ErrorIs(t, err, storage.ErrInvalidUpload)
}
