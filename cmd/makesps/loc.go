// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/keinus/make-sps/pkg/loc"
)

func newLocCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "loc <file>...",
		Short: "Count logical source lines",
		Long: `Count logical lines of source files the way the report does: blank
lines and comment-only lines (//, /* */, #, --, Python docstrings) are not
counted.`,
		Example: "  make-sps loc main.go util.py",
		Args:    usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(args)+1)
			total, failed := 0, 0
			for _, path := range args {
				n := loc.CountFile(path)
				if n == loc.Unreadable {
					failed++
					rows = append(rows, []string{path, WarningStyle.Render("unreadable")})
					continue
				}
				total += n
				rows = append(rows, []string{path, strconv.Itoa(n)})
			}
			if len(args) > 1 {
				rows = append(rows, []string{TitleStyle.Render("total"), strconv.Itoa(total)})
			}
			fmt.Fprintln(app.stdout, renderTable([]string{"File", "Lines"}, rows))

			if failed > 0 {
				return app.fail(cmd, fmt.Errorf("%d file(s) could not be read", failed))
			}
			return nil
		},
	}
}
