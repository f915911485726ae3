package server

import (
	"context"
	"log/slog"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/vinscan/internal/common"
	"github.com/joseph-ayodele/vinscan/internal/decode"
	"github.com/joseph-ayodele/vinscan/internal/export"
	"github.com/joseph-ayodele/vinscan/internal/extract"
	"github.com/joseph-ayodele/vinscan/internal/utils"
	"github.com/joseph-ayodele/vinscan/internal/vin"
)

// Decoder looks up vehicle data for a VIN; *decode.Client satisfies it.
type Decoder interface {
	Decode(ctx context.Context, v string) (*decode.Vehicle, error)
}

const maxExportRows = 10000

type VinService struct {
	extractor *extract.Service
	decoder   Decoder
	exporter  *export.Service
	logger    *slog.Logger
}

// NewVinService wires the handlers. decoder and exporter may be nil, in which
// case the matching RPCs answer Unimplemented.
func NewVinService(extractor *extract.Service, decoder Decoder, exporter *export.Service, logger *slog.Logger) *VinService {
	if logger == nil {
		logger = slog.Default()
	}
	return &VinService{extractor: extractor, decoder: decoder, exporter: exporter, logger: logger}
}

// Extract never fails for "no VIN" or bad images; those outcomes are in the Result.
func (s *VinService) Extract(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	ctx = common.WithSource(ctx, "grpc")
	res := s.extractor.Extract(ctx, req.GetValue())
	out, err := utils.ToStruct(res)
	if err != nil {
		s.logger.Error("extract.encode.failed", "error", err)
		return nil, common.InternalError("failed to encode result")
	}
	return out, nil
}

func (s *VinService) CheckShape(_ context.Context, req *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	return wrapperspb.Bool(vin.IsValidShape(req.GetValue())), nil
}

func (s *VinService) FindInText(_ context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	v, ok := vin.FindInText(req.GetValue())
	if !ok {
		return nil, common.NotFoundError("no VIN found in message")
	}
	return wrapperspb.String(v), nil
}

func (s *VinService) Decode(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if s.decoder == nil {
		return nil, status.Error(codes.Unimplemented, "vehicle decoding is not configured")
	}
	v := strings.TrimSpace(req.GetValue())
	if err := common.ValidateAndReturnError(common.NewValidator().Field("vin", v, common.VINShape)); err != nil {
		return nil, err
	}
	veh, err := s.decoder.Decode(ctx, v)
	if err != nil {
		s.logger.Warn("decode.failed", "vin", v, "error", err)
		return nil, common.StatusFromError(err)
	}
	out, err := utils.ToStruct(veh)
	if err != nil {
		return nil, common.InternalError("failed to encode vehicle")
	}
	return out, nil
}

func (s *VinService) ExportExtractions(ctx context.Context, req *wrapperspb.Int32Value) (*wrapperspb.BytesValue, error) {
	if s.exporter == nil {
		return nil, status.Error(codes.Unimplemented, "audit log is not configured")
	}
	limit := int(req.GetValue())
	if limit < 0 || limit > maxExportRows {
		return nil, common.InvalidArgumentErrorf("limit must be between 0 and %d", maxExportRows)
	}
	if limit == 0 {
		limit = maxExportRows
	}
	xlsx, err := s.exporter.ExtractionsXLSX(ctx, limit)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "err", err)
		return nil, common.StatusFromError(err)
	}
	return wrapperspb.Bytes(xlsx), nil
}

var _ VinServiceServer = (*VinService)(nil)
