package server_test

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/vinscan/internal/common"
	"github.com/joseph-ayodele/vinscan/internal/decode"
	"github.com/joseph-ayodele/vinscan/internal/export"
	"github.com/joseph-ayodele/vinscan/internal/extract"
	"github.com/joseph-ayodele/vinscan/internal/media"
	"github.com/joseph-ayodele/vinscan/internal/repository"
	"github.com/joseph-ayodele/vinscan/internal/server"
	"github.com/joseph-ayodele/vinscan/internal/utils"
	"github.com/joseph-ayodele/vinscan/internal/vin"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

type plateEngine struct{}

func (plateEngine) Name() string { return "fake" }

func (plateEngine) Recognize(context.Context, media.Image) ([]vin.TextBlock, error) {
	return []vin.TextBlock{{Text: "VIN: 1HGBH41JXMN109186", Confidence: 97}}, nil
}

type fakeDecoder struct {
	calls int
	err   error
}

func (f *fakeDecoder) Decode(_ context.Context, v string) (*decode.Vehicle, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &decode.Vehicle{VIN: v, Make: "HONDA", Model: "Civic", Year: "1991", ErrorCode: "0"}, nil
}

type harness struct {
	client  *server.VinServiceClient
	health  grpc_health_v1.HealthClient
	decoder *fakeDecoder
}

func start(t *testing.T, withDecoder, withAudit bool) *harness {
	t.Helper()
	ctx := context.Background()

	var svcOpts []extract.ServiceOption
	var exporter *export.Service
	if withAudit {
		db, err := repository.Open(ctx, repository.Config{Driver: common.DriverSQLite, DSN: ":memory:"}, nil)
		require.NoError(t, err)
		t.Cleanup(db.Close)
		require.NoError(t, db.Migrate(ctx))
		repo := repository.NewExtractionRepository(db, nil)
		svcOpts = append(svcOpts, extract.WithRecorder(repo))
		exporter = export.NewService(repo, nil)
	}
	extractor := extract.NewService(plateEngine{}, extract.Options{}, nil, svcOpts...)

	h := &harness{}
	var dec server.Decoder
	if withDecoder {
		h.decoder = &fakeDecoder{}
		dec = h.decoder
	}

	srv, _ := server.New(server.NewVinService(extractor, dec, exporter, nil), nil)
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	h.client = server.NewVinServiceClient(conn)
	h.health = grpc_health_v1.NewHealthClient(conn)
	return h
}

func TestExtractRPC(t *testing.T) {
	h := start(t, false, false)
	ctx := context.Background()

	out, err := h.client.Extract(ctx, wrapperspb.Bytes(pngBytes))
	require.NoError(t, err)
	var res vin.Result
	require.NoError(t, utils.FromStruct(out, &res))
	assert.True(t, res.Found)
	assert.Equal(t, "1HGBH41JXMN109186", res.VIN)
	assert.Equal(t, vin.CheckDigitValid, res.Diagnostics.CheckDigit)

	// bad input is a result, not an RPC error
	out, err = h.client.Extract(ctx, wrapperspb.Bytes([]byte("not an image")))
	require.NoError(t, err)
	res = vin.Result{}
	require.NoError(t, utils.FromStruct(out, &res))
	assert.False(t, res.Found)
	require.NotNil(t, res.Failure)
	assert.Equal(t, vin.FailureInput, res.Failure.Kind)
}

func TestCheckShapeAndFindRPC(t *testing.T) {
	h := start(t, false, false)
	ctx := context.Background()

	ok, err := h.client.CheckShape(ctx, wrapperspb.String("1HGBH41JXMN109186"))
	require.NoError(t, err)
	assert.True(t, ok.GetValue())

	ok, err = h.client.CheckShape(ctx, wrapperspb.String("1HGBH41JXMN1O9186"))
	require.NoError(t, err)
	assert.False(t, ok.GetValue())

	found, err := h.client.FindInText(ctx, wrapperspb.String("Vehicle Identification Number: 2t1burhe0jc123456"))
	require.NoError(t, err)
	assert.Equal(t, "2T1BURHE0JC123456", found.GetValue())

	_, err = h.client.FindInText(ctx, wrapperspb.String("my car is blue"))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestDecodeRPC(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		h := start(t, false, false)
		_, err := h.client.Decode(context.Background(), wrapperspb.String("1HGBH41JXMN109186"))
		assert.Equal(t, codes.Unimplemented, status.Code(err))
	})

	t.Run("decodes", func(t *testing.T) {
		h := start(t, true, false)
		out, err := h.client.Decode(context.Background(), wrapperspb.String(" 1HGBH41JXMN109186 "))
		require.NoError(t, err)
		assert.Equal(t, "HONDA", out.Fields["make"].GetStringValue())
		assert.Equal(t, "1991", out.Fields["year"].GetStringValue())
	})

	t.Run("bad shape never reaches the decoder", func(t *testing.T) {
		h := start(t, true, false)
		_, err := h.client.Decode(context.Background(), wrapperspb.String("1HGBH41"))
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
		assert.Zero(t, h.decoder.calls)
	})

	t.Run("upstream failure", func(t *testing.T) {
		h := start(t, true, false)
		h.decoder.err = fmt.Errorf("%w: vpic down", common.ErrUnavailable)
		_, err := h.client.Decode(context.Background(), wrapperspb.String("1HGBH41JXMN109186"))
		assert.Equal(t, codes.Unavailable, status.Code(err))
	})
}

func TestExportRPC(t *testing.T) {
	h := start(t, false, true)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := h.client.Extract(ctx, wrapperspb.Bytes(pngBytes))
		require.NoError(t, err)
	}

	out, err := h.client.ExportExtractions(ctx, wrapperspb.Int32(0))
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(out.GetValue()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SheetExtractions)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "grpc", rows[1][1])
	assert.Equal(t, "1HGBH41JXMN109186", rows[1][3])

	_, err = h.client.ExportExtractions(ctx, wrapperspb.Int32(-1))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestHealthAndRequestID(t *testing.T) {
	h := start(t, false, false)

	resp, err := h.health.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: server.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())

	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-request-id", "req-42")
	var header metadata.MD
	_, err = h.client.CheckShape(ctx, wrapperspb.String("1HGBH41JXMN109186"), grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, []string{"req-42"}, header.Get("x-request-id"))
}
