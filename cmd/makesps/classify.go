// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/keinus/make-sps/pkg/category"
)

func newClassifyCommand(app *App) *cobra.Command {
	var unknownAsConfig bool

	cmd := &cobra.Command{
		Use:   "classify <file-or-extension>...",
		Short: "Show the category of files or extensions",
		Long: `Show the audit category and report label for each argument.

An argument with an extension is classified by that extension; a bare word
such as "go" or ".dll" is taken as the extension itself.`,
		Example: `  make-sps classify main.go logo.png .dll
  make-sps classify --unknown-as-config settings.xyz`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Settings(cmd.Context())
			if err != nil {
				return app.fail(cmd, err)
			}
			fallback := cfg.Classify.UnknownFallback
			if unknownAsConfig {
				fallback = category.FallbackConfiguration
			}
			classifier, err := category.NewClassifier(fallback)
			if err != nil {
				return app.fail(cmd, err)
			}

			rows := make([][]string, 0, len(args))
			for _, arg := range args {
				cat := classifyArg(classifier, arg)
				rows = append(rows, []string{arg, cat.String(), cat.Label()})
			}
			fmt.Fprintln(app.stdout, renderTable([]string{"Input", "Category", "Label"}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&unknownAsConfig, "unknown-as-config", false, "classify unknown extensions as configuration files")
	return cmd
}

func classifyArg(c *category.Classifier, arg string) category.Category {
	if filepath.Ext(arg) == "" {
		return c.Classify(arg)
	}
	return c.ClassifyPath(arg)
}
