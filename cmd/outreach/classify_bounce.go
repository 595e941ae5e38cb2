package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Champ-Deep/ChampMail-sub000/internal/bounce"
	"github.com/Champ-Deep/ChampMail-sub000/internal/observability"
)

func newClassifyBounceCmd() *cobra.Command {
	var (
		report bounce.Report
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "classify-bounce",
		Short: "Classify a delivery failure report without side effects",
		Example: `  outreach classify-bounce --code 550 --response "550 5.1.1 User unknown"
  outreach classify-bounce --response "mailbox temporarily over quota" --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			classification := bounce.Classify(report)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(classification)
			}
			observability.NewPrinter(cmd.OutOrStdout()).PrintBounce(classification)
			return nil
		},
	}
	cmd.Flags().StringVar(&report.SMTPCode, "code", "", "SMTP status code, e.g. 550 or 5.1.1")
	cmd.Flags().StringVar(&report.Response, "response", "", "SMTP response text")
	cmd.Flags().StringVar(&report.Diagnostic, "diagnostic", "", "Diagnostic message from the bounce report")
	cmd.Flags().StringVar(&report.Hint, "type", "", "Bounce type reported by the provider (hard, soft, ...)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the classification as JSON")
	return cmd
}
