package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/agentstation/confmap/pkg/reconcile"
	"github.com/agentstation/confmap/pkg/records"
	"github.com/agentstation/confmap/pkg/store"
)

var (
	filterRank     string
	filterCategory string
	filterStatus   string
	filterFrom     string
	filterTo       string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List validated entities from the store",
	Long: `List prints the validated entities of the latest applied snapshot.
Filters combine with AND; an unset filter matches everything.`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&filterRank, "rank", "",
		"filter by rank or quartile (A, B, C, N/A, Q1..Q4)")
	listCmd.Flags().StringVar(&filterCategory, "category", "",
		"filter by category, case-insensitive")
	listCmd.Flags().StringVar(&filterStatus, "status", "",
		"filter by status: verified, needs_review, unverified")
	listCmd.Flags().StringVar(&filterFrom, "from", "",
		"earliest deadline, YYYY-MM-DD")
	listCmd.Flags().StringVar(&filterTo, "to", "",
		"latest deadline, YYYY-MM-DD")
}

func runList(cmd *cobra.Command, _ []string) error {
	filter, err := buildFilter()
	if err != nil {
		return err
	}

	dir, err := storeDir()
	if err != nil {
		return err
	}
	st, err := store.NewFileStore(dir)
	if err != nil {
		return err
	}

	entities, err := st.Query(cmd.Context(), filter)
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		fmt.Println("No entities match.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDEADLINE\tRANK\tCONFIDENCE\tSTATUS\tSOURCES")
	for _, e := range entities {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%d\n",
			e.Name,
			fieldDisplay(e, records.KindDate),
			fieldDisplay(e, records.KindRank),
			e.OverallConfidence,
			e.Status,
			len(e.Provenance))
	}
	return w.Flush()
}

func buildFilter() (store.Filter, error) {
	var f store.Filter
	if filterRank != "" {
		r, err := records.ParseRank(filterRank)
		if err != nil {
			return store.Filter{}, err
		}
		f.Rank = r
	}
	f.Category = filterCategory
	if filterStatus != "" {
		f.Status = reconcile.VerificationStatus(filterStatus)
	}
	if filterFrom != "" {
		d, err := records.ParseDate(filterFrom)
		if err != nil {
			return store.Filter{}, err
		}
		f.DeadlineFrom = d
	}
	if filterTo != "" {
		d, err := records.ParseDate(filterTo)
		if err != nil {
			return store.Filter{}, err
		}
		f.DeadlineTo = d
	}
	return f, nil
}

// fieldDisplay renders the first resolved field of the given kind, or a
// placeholder when the entity has none.
func fieldDisplay(e reconcile.ValidatedEntity, kind records.ValueKind) string {
	for _, rf := range e.Fields {
		// Manual fields carry no value and never match a kind.
		if rf.Value.Kind == kind {
			return rf.Value.String()
		}
	}
	return "-"
}
