package ocr

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/vinscan/constants"
	"github.com/joseph-ayodele/vinscan/internal/common"
	"github.com/joseph-ayodele/vinscan/internal/media"
)

const tsvFixture = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t640\t480\t-1\t\n" +
	"4\t1\t1\t1\t1\t0\t10\t10\t300\t20\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t10\t40\t20\t96.5\tVIN\n" +
	"5\t1\t1\t1\t1\t2\t60\t10\t200\t20\t91.5\t1HGBH41JXMN109186\n" +
	"5\t1\t2\t1\t1\t1\t10\t50\t80\t20\t-1\tMADE\n" +
	"5\t1\t2\t1\t1\t2\t100\t50\t30\t20\t-1\tIN\n" +
	"5\t1\t2\t1\t1\t3\t140\t50\t40\t20\t-1\tUSA\n" +
	"5\t1\t2\t1\t2\t1\t10\t80\t40\t20\t70\t \n"

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	calls  []call
	stdout []byte
	stderr []byte
	err    error
	// convErr fails converter invocations only.
	convErr error
}

func (f *fakeRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	if name != "tesseract" {
		if f.convErr != nil {
			return nil, []byte("boom"), f.convErr
		}
		// magick <in> <out>
		return nil, nil, os.WriteFile(args[len(args)-1], []byte("png"), 0o644)
	}
	return f.stdout, f.stderr, f.err
}

func pngImage() media.Image {
	return media.Image{Data: []byte("\x89PNG fake"), MIME: constants.MIMEPNG, Ext: "png"}
}

func TestParseTSV(t *testing.T) {
	blocks := parseTSV(tsvFixture)
	require.Len(t, blocks, 2)
	assert.Equal(t, "VIN 1HGBH41JXMN109186", blocks[0].Text)
	assert.InDelta(t, 94.0, blocks[0].Confidence, 1e-9)
	assert.Equal(t, "MADE IN USA", blocks[1].Text)
	assert.Equal(t, -1.0, blocks[1].Confidence)

	assert.Empty(t, parseTSV(""))
	assert.Empty(t, parseTSV("not\ta\ttsv\n"))
}

func TestTesseractRecognize(t *testing.T) {
	r := &fakeRunner{stdout: []byte(tsvFixture)}
	eng := NewTesseract(Config{PSM: 11, TessdataDir: "/share/tessdata"}, nil, WithRunner(r))

	blocks, err := eng.Recognize(context.Background(), pngImage())
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, TesseractName, eng.Name())

	require.Len(t, r.calls, 1)
	args := r.calls[0].args
	assert.Equal(t, "tesseract", r.calls[0].name)
	assert.Equal(t, []string{"stdout", "-l", "eng", "--psm", "11", "--tessdata-dir", "/share/tessdata", "tsv"}, args[1:])

	// staged file is removed afterwards
	_, statErr := os.Stat(args[0])
	assert.True(t, os.IsNotExist(statErr))
}

func TestTesseractFailureIsUnavailable(t *testing.T) {
	r := &fakeRunner{err: errors.New("exit status 1"), stderr: []byte("Error opening data file")}
	eng := NewTesseract(Config{}, nil, WithRunner(r))

	_, err := eng.Recognize(context.Background(), pngImage())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnavailable)
	assert.Contains(t, err.Error(), "Error opening data file")
}

func TestTesseractContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &fakeRunner{err: errors.New("signal: killed")}
	eng := NewTesseract(Config{}, nil, WithRunner(r))

	_, err := eng.Recognize(ctx, pngImage())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, common.ErrUnavailable)
}

func TestTesseractHEIC(t *testing.T) {
	heic := media.Image{Data: []byte("ftypheic fake"), MIME: constants.MIMEHEIC, Ext: "heic"}

	t.Run("converted and cached", func(t *testing.T) {
		cache := t.TempDir()
		r := &fakeRunner{stdout: []byte(tsvFixture)}
		eng := NewTesseract(Config{HeicConverter: "magick", ArtifactCacheDir: cache}, nil, WithRunner(r))

		_, err := eng.Recognize(context.Background(), heic)
		require.NoError(t, err)
		require.Len(t, r.calls, 2)
		assert.Equal(t, "magick", r.calls[0].name)
		assert.FileExists(t, cache+"/"+heic.Hash()+".png")

		// second run reuses the cached PNG
		_, err = eng.Recognize(context.Background(), heic)
		require.NoError(t, err)
		require.Len(t, r.calls, 3)
		assert.Equal(t, "tesseract", r.calls[2].name)
	})

	t.Run("unknown converter", func(t *testing.T) {
		r := &fakeRunner{}
		eng := NewTesseract(Config{HeicConverter: "gimp"}, nil, WithRunner(r))
		_, err := eng.Recognize(context.Background(), heic)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrUnavailable)
		assert.Empty(t, r.calls)
	})

	t.Run("converter failure", func(t *testing.T) {
		r := &fakeRunner{convErr: errors.New("exit status 1")}
		eng := NewTesseract(Config{HeicConverter: "heif-convert"}, nil, WithRunner(r))
		_, err := eng.Recognize(context.Background(), heic)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrUnavailable)
		require.Len(t, r.calls, 1)
	})
}

func TestNewEngine(t *testing.T) {
	eng, err := NewEngine(common.OCRConfig{Engine: common.EngineTesseract}, nil)
	require.NoError(t, err)
	assert.Equal(t, TesseractName, eng.Name())

	eng, err = NewEngine(common.OCRConfig{Engine: common.EngineMistral, MistralAPIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, MistralName, eng.Name())

	_, err = NewEngine(common.OCRConfig{Engine: "paddle"}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
