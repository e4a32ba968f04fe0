package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/confmap/pkg/store"
)

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List store backups",
	RunE:  runBackups,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <backup-id>",
	Short: "Restore a previous snapshot from a backup",
	Long: `Restore replaces the current snapshot with the named backup. The
snapshot being replaced is backed up first, so a restore can itself be
undone.`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(backupsCmd)
	rootCmd.AddCommand(restoreCmd)
}

func runBackups(cmd *cobra.Command, _ []string) error {
	dir, err := storeDir()
	if err != nil {
		return err
	}
	st, err := store.NewFileStore(dir)
	if err != nil {
		return err
	}

	backups, err := st.Backups(cmd.Context())
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		fmt.Println("No backups.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tENTITIES")
	for _, b := range backups {
		fmt.Fprintf(w, "%s\t%s\t%d\n", b.ID, b.CreatedAt.Format(time.RFC3339), b.Entities)
	}
	return w.Flush()
}

func runRestore(cmd *cobra.Command, args []string) error {
	dir, err := storeDir()
	if err != nil {
		return err
	}
	st, err := store.NewFileStore(dir)
	if err != nil {
		return err
	}

	if err := st.Restore(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Restored snapshot from backup %s.\n", args[0])
	return nil
}
