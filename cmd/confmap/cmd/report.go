package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/confmap/pkg/store"
)

var reportDetail bool

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the validation report of the latest applied run",
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().BoolVar(&reportDetail, "detail", false,
		"print every conflict and its resolution")
}

func runReport(cmd *cobra.Command, _ []string) error {
	dir, err := storeDir()
	if err != nil {
		return err
	}
	st, err := store.NewFileStore(dir)
	if err != nil {
		return err
	}

	report, err := st.Report(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Print(report.Summary())
	if reportDetail {
		fmt.Println()
		fmt.Print(report.Detail())
	}
	return nil
}
