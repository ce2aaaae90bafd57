package names

import (
	"github.com/spf13/cobra"

	namespkg "github.com/klytics/namekit/internal/names"
	"github.com/klytics/namekit/internal/output"
)

func newListCommand() *cobra.Command {
	var sheet string

	cmd := &cobra.Command{
		Use:   "list <file.xlsx>",
		Short: "List the workbook's named ranges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")

			s, err := openSession(args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			var aliases []namespkg.Alias
			for _, a := range s.Aliases() {
				if sheet != "" && a.Sheet != sheet {
					continue
				}
				aliases = append(aliases, a)
			}

			if jsonFlag {
				return output.WriteJSON(cmd.OutOrStdout(), "names list", aliases)
			}

			w := cmd.OutOrStdout()
			if len(aliases) == 0 {
				output.Dim(w, "No named ranges defined.")
				return nil
			}

			tbl := &output.Table{Header: []string{"Name", "Refers To", "Scope"}}
			for _, a := range aliases {
				scope := a.Scope
				if scope == "" {
					scope = "workbook"
				}
				tbl.Rows = append(tbl.Rows, []string{a.Name, a.RefersTo, scope})
			}

			rendered := tbl.String()
			if output.ShouldPage(w, rendered, 40) {
				return output.Page(rendered)
			}
			tbl.Render(w)
			output.Dim(w, "  (%d names)", len(aliases))
			return nil
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "Only names that refer to this sheet")

	return cmd
}
