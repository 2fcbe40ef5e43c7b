package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func newUploader(t *testing.T, max int64) (*Uploader, string) {
	dir := t.TempDir()
	disk, err := NewDiskStore(dir, "uploads")
	require.NoError(t, err)
	return NewUploader(disk, max), dir
}

func TestAcceptPNG(t *testing.T) {
	u, dir := newUploader(t, 0)

	file, err := u.Accept(context.Background(), "../../holiday.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)

	assert.Equal(t, "image/png", file.MimeType)
	assert.Equal(t, "holiday.png", file.Name)
	assert.EqualValues(t, len(pngHeader), file.Size)
	assert.True(t, strings.HasSuffix(file.StoredName, ".png"))
	assert.Equal(t, "/uploads/"+file.StoredName, file.URL)

	stored, err := os.ReadFile(filepath.Join(dir, file.StoredName))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, stored)
}

func TestAcceptPDF(t *testing.T) {
	u, _ := newUploader(t, 0)

	file, err := u.Accept(context.Background(), "report.pdf", strings.NewReader("%PDF-1.4\n%âãÏÓ\n1 0 obj\n"))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.MimeType)
}

func TestAcceptRejects(t *testing.T) {
	u, dir := newUploader(t, 32)

	_, err := u.Accept(context.Background(), "notes.txt", strings.NewReader("just some text"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	big := append(append([]byte{}, pngHeader...), make([]byte, 64)...)
	_, err = u.Accept(context.Background(), "big.png", bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = u.Accept(context.Background(), "empty.png", bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrEmpty)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected files are never written")
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "a.pdf", cleanName(`C:\docs\a.pdf`, "x"))
	assert.Equal(t, "x", cleanName("", "x"))
	assert.Equal(t, "x", cleanName("/", "x"))
}
