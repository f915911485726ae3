package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/vinscan/internal/common"
	"github.com/joseph-ayodele/vinscan/internal/decode"
	"github.com/joseph-ayodele/vinscan/internal/extract"
	"github.com/joseph-ayodele/vinscan/internal/repository"
	"github.com/joseph-ayodele/vinscan/internal/vin"
)

var errNoVIN = errors.New("no VIN found")

var extractCmd = &cobra.Command{
	Use:   "extract FILE",
	Short: "Extract the VIN from one photo and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		ctx := common.WithSource(cmd.Context(), "cli")

		db, err := a.openAudit(ctx, false)
		if err != nil {
			return err
		}
		var records repository.ExtractionRepository
		if db != nil {
			defer db.Close()
			records = repository.NewExtractionRepository(db, a.logger)
		}
		svc, err := a.extractor(records)
		if err != nil {
			return err
		}

		res := svc.ExtractFile(ctx, args[0])
		if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		if res.Unavailable() {
			return errors.New(res.Failure.Message)
		}
		if !res.Found {
			return errNoVIN
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check TEXT",
	Short: "Check whether TEXT is a well-formed VIN",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.TrimSpace(args[0])
		if extract.CheckVIN(text) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (check digit %s)\n", strings.ToUpper(text), vin.CheckDigitOf(text))
			return nil
		}
		return fmt.Errorf("%q is not a valid VIN: %s", text, strings.Join(vin.ShapeViolations(text), ", "))
	},
}

var findCmd = &cobra.Command{
	Use:   "find TEXT...",
	Short: "Find the first VIN mentioned in a free-form message",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, ok := extract.FindVIN(strings.Join(args, " "))
		if !ok {
			return errNoVIN
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode VIN",
	Short: "Look up make, model and year for a VIN",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		client, err := decode.NewClient(decode.ConfigFrom(a.cfg.Decode), a.logger)
		if err != nil {
			return err
		}
		veh, err := client.Decode(cmd.Context(), strings.TrimSpace(args[0]))
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), veh)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd, checkCmd, findCmd, decodeCmd)
}
