package main

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/vinscan/internal/decode"
	"github.com/joseph-ayodele/vinscan/internal/export"
	"github.com/joseph-ayodele/vinscan/internal/repository"
	"github.com/joseph-ayodele/vinscan/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC VIN service",
	Long: `Start the vinscan.v1.VinService gRPC server together with the standard
health service and reflection.

The audit log and XLSX export are enabled when a database is configured
(database.driver) or --inmem is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp()
		if err != nil {
			return err
		}
		addr := a.cfg.Server.GRPCAddr
		if serveAddr != "" {
			addr = serveAddr
		}

		db, err := a.openAudit(ctx, false)
		if err != nil {
			return fmt.Errorf("audit log: %w", err)
		}
		var (
			records  repository.ExtractionRepository
			exporter *export.Service
		)
		if db != nil {
			defer db.Close()
			records = repository.NewExtractionRepository(db, a.logger)
			exporter = export.NewService(records, a.logger)
		}

		extractor, err := a.extractor(records)
		if err != nil {
			return err
		}
		decoder, err := decode.NewClient(decode.ConfigFrom(a.cfg.Decode), a.logger)
		if err != nil {
			return err
		}

		grpcServer, hs := server.New(server.NewVinService(extractor, decoder, exporter, a.logger), a.logger)
		// Reflection for grpcurl
		reflection.Register(grpcServer)

		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		a.logger.Info("gRPC serving", "addr", lis.Addr().String(), "engine", extractor.EngineName(), "audit", db != nil)

		serveErr := make(chan error, 1)
		go func() { serveErr <- grpcServer.Serve(lis) }()

		select {
		case err := <-serveErr:
			return fmt.Errorf("grpc serve: %w", err)
		case <-ctx.Done():
		}
		a.logger.Info("shutting down")
		hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		grpcServer.GracefulStop()
		a.logger.Info("stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.grpc_addr)")
	rootCmd.AddCommand(serveCmd)
}
