package media_test

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/vinscan/constants"
	"github.com/joseph-ayodele/vinscan/internal/common"
	"github.com/joseph-ayodele/vinscan/internal/media"
)

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
	jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}, make([]byte, 32)...)
	heicBytes = append([]byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00"), make([]byte, 32)...)
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		payload  []byte
		max      int64
		wantMIME string
		wantExt  string
		wantErr  string
	}{
		{name: "binary png", payload: pngBytes, max: 1 << 20, wantMIME: constants.MIMEPNG, wantExt: "png"},
		{name: "binary jpeg", payload: jpegBytes, max: 1 << 20, wantMIME: constants.MIMEJPEG, wantExt: "jpg"},
		{name: "heic brand", payload: heicBytes, max: 1 << 20, wantMIME: constants.MIMEHEIC, wantExt: "heic"},
		{
			name:     "data url",
			payload:  []byte("data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)),
			max:      1 << 20,
			wantMIME: constants.MIMEPNG,
			wantExt:  "png",
		},
		{name: "empty", payload: []byte("  "), max: 1 << 20, wantErr: "empty image"},
		{name: "oversized binary", payload: pngBytes, max: 8, wantErr: "limit is 8"},
		{
			name:    "oversized data url",
			payload: []byte("data:image/png;base64," + base64.StdEncoding.EncodeToString(make([]byte, 4096))),
			max:     1024,
			wantErr: "limit is 1024",
		},
		{name: "not base64", payload: []byte("data:image/png;base64,%%%%"), max: 1 << 20, wantErr: "not valid base64"},
		{name: "not base64 encoded data url", payload: []byte("data:image/png,abc"), max: 1 << 20, wantErr: "must be base64"},
		{name: "text is not an image", payload: []byte("hello there, definitely not a photo"), max: 1 << 20, wantErr: "unsupported image type"},
		{
			name:    "hint does not override sniffed text",
			payload: []byte("data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("plain text body"))),
			max:     1 << 20,
			wantErr: "unsupported image type",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := media.Decode(tt.payload, tt.max)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrInvalidInput)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMIME, img.MIME)
			assert.Equal(t, tt.wantExt, img.Ext)
		})
	}
}

func TestImage_DataURLRoundTrip(t *testing.T) {
	img, err := media.Decode(pngBytes, 0)
	require.NoError(t, err)

	u := img.DataURL()
	assert.True(t, strings.HasPrefix(u, "data:image/png;base64,"))

	again, err := media.Decode([]byte(u), 0)
	require.NoError(t, err)
	assert.Equal(t, img.Data, again.Data)
	assert.Equal(t, img.Hash(), again.Hash())
	assert.Len(t, img.Hash(), 64)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plate.png")
	require.NoError(t, os.WriteFile(path, pngBytes, 0o600))

	img, err := media.ReadFile(path, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, constants.MIMEPNG, img.MIME)

	_, err = media.ReadFile(path, 4)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = media.ReadFile(filepath.Join(dir, "missing.png"), 1<<20)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
