package media

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/joseph-ayodele/vinscan/constants"
	"github.com/joseph-ayodele/vinscan/internal/common"
)

// Image is a decoded photo ready for OCR.
type Image struct {
	Data []byte
	MIME string
	Ext  string
}

// Hash returns the hex SHA-256 of the image bytes.
func (img Image) Hash() string {
	sum := sha256.Sum256(img.Data)
	return hex.EncodeToString(sum[:])
}

func (img Image) IsHEIC() bool { return img.MIME == constants.MIMEHEIC }

// DataURL renders the image as data:<mime>;base64,<payload>.
func (img Image) DataURL() string {
	return "data:" + img.MIME + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Decode accepts raw image bytes or a base64 data URL, enforces maxBytes on the
// decoded size and sniffs the media type. All failures wrap common.ErrInvalidInput.
func Decode(payload []byte, maxBytes int64) (Image, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return Image{}, fmt.Errorf("%w: empty image", common.ErrInvalidInput)
	}

	data := payload
	var hint string
	if bytes.HasPrefix(trimmed, []byte("data:")) {
		if maxBytes > 0 && int64(base64.StdEncoding.DecodedLen(len(trimmed))) > maxBytes+3 {
			return Image{}, tooLarge(int64(base64.StdEncoding.DecodedLen(len(trimmed))), maxBytes)
		}
		var err error
		data, hint, err = decodeDataURL(string(trimmed))
		if err != nil {
			return Image{}, err
		}
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return Image{}, tooLarge(int64(len(data)), maxBytes)
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: empty image", common.ErrInvalidInput)
	}

	mt := sniff(data, hint)
	ext := constants.ExtForMIME(mt)
	if ext == "" {
		return Image{}, fmt.Errorf("%w: unsupported image type %q", common.ErrInvalidInput, mt)
	}
	return Image{Data: data, MIME: mt, Ext: ext}, nil
}

// ReadFile loads path and decodes it with the same rules as Decode.
func ReadFile(path string, maxBytes int64) (Image, error) {
	st, err := os.Stat(path)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	if maxBytes > 0 && st.Size() > maxBytes {
		return Image{}, tooLarge(st.Size(), maxBytes)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	return Decode(b, maxBytes)
}

func tooLarge(size, max int64) error {
	return fmt.Errorf("%w: image is %d bytes, limit is %d", common.ErrInvalidInput, size, max)
}

func decodeDataURL(s string) ([]byte, string, error) {
	idx := strings.IndexByte(s, ',')
	if idx < 0 {
		return nil, "", fmt.Errorf("%w: malformed data URL", common.ErrInvalidInput)
	}
	meta := s[len("data:"):idx] // "<mime>;base64"
	if !strings.HasSuffix(meta, ";base64") {
		return nil, "", fmt.Errorf("%w: data URL must be base64 encoded", common.ErrInvalidInput)
	}
	hint := strings.TrimSuffix(meta, ";base64")
	if semi := strings.IndexByte(hint, ';'); semi >= 0 {
		hint = hint[:semi]
	}

	payload := s[idx+1:]
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding} {
		if b, err := enc.DecodeString(payload); err == nil {
			return b, hint, nil
		}
	}
	return nil, "", fmt.Errorf("%w: data URL payload is not valid base64", common.ErrInvalidInput)
}

var heicBrands = []string{"heic", "heix", "hevc", "heim", "heis", "mif1", "msf1"}

func sniff(data []byte, hint string) string {
	if len(data) >= 12 && string(data[4:8]) == "ftyp" {
		brand := string(data[8:12])
		for _, b := range heicBrands {
			if brand == b {
				return constants.MIMEHEIC
			}
		}
	}
	if len(data) >= 4 && (bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*"))) {
		return constants.MIMETIFF
	}
	mt := http.DetectContentType(data)
	if strings.HasPrefix(mt, "image/") {
		return mt
	}
	if mt == "application/octet-stream" && strings.HasPrefix(hint, "image/") {
		return hint
	}
	return mt
}
