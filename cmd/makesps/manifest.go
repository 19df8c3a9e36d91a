// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keinus/make-sps/internal/issue"
	"github.com/keinus/make-sps/internal/manifest"
)

func newManifestCommand(app *App) *cobra.Command {
	manifestCmd := &cobra.Command{
		Use:   "manifest",
		Short: "Create and validate project manifests",
		Long: `Create and validate project manifests.

A manifest in the delivery root names the device, version, part number
prefix and checksum algorithm, and maps CSU names to subdirectories.
Recognized names, in order: ` + strings.Join(manifest.Filenames, ", "),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	manifestCmd.AddCommand(newManifestInitCommand(app))
	manifestCmd.AddCommand(newManifestValidateCommand(app))
	return manifestCmd
}

func newManifestInitCommand(app *App) *cobra.Command {
	var (
		device   string
		fromDirs bool
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "init [root]",
		Short: "Write a starter make-sps.yaml",
		Example: `  make-sps manifest init ./delivery --device RDR-1
  make-sps manifest init ./delivery --from-dirs`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			path, err := initManifest(root, device, fromDirs, force)
			if err != nil {
				return app.fail(cmd, err)
			}
			fmt.Fprintf(app.stdout, "%s Created %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(path))
			return nil
		},
	}

	cmd.Flags().StringVar(&device, "device", "", "device name to write into the manifest")
	cmd.Flags().BoolVar(&fromDirs, "from-dirs", false, "add one CSU per top-level subdirectory")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing manifest")
	return cmd
}

func initManifest(root, device string, fromDirs, force bool) (string, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return "", issue.NewErrorContext().
			WithOperation("create manifest").
			WithResource(root).
			WithSuggestion("Pass an existing delivery directory").
			WithIssue(issue.RootNotFoundId).
			Wrap(fmt.Errorf("not a directory: %s", root)).
			BuildError()
	}

	if existing, findErr := manifest.Find(root); findErr == nil && !force {
		return "", issue.NewErrorContext().
			WithOperation("create manifest").
			WithResource(existing).
			WithSuggestion("Use --force to overwrite it").
			Wrap(fs.ErrExist).
			BuildError()
	}

	var csus []manifest.CSU
	if fromDirs {
		if csus, err = dirCSUs(root); err != nil {
			return "", err
		}
	}

	body, err := manifest.Starter(device, csus...)
	if err != nil {
		return "", err
	}
	path := filepath.Join(root, manifest.Filenames[0])
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", issue.NewErrorContext().
			WithOperation("write manifest").
			WithResource(path).
			WithIssue(issue.PermissionDeniedId).
			Wrap(err).
			BuildError()
	}
	return path, nil
}

// dirCSUs returns one CSU per visible top-level directory of root.
func dirCSUs(root string) ([]manifest.CSU, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}
	var csus []manifest.CSU
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		csus = append(csus, manifest.CSU{Name: e.Name(), Dir: e.Name()})
	}
	return csus, nil
}

func newManifestValidateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a manifest file, or the manifest in a directory",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "."
			if len(args) == 1 {
				target = args[0]
			}
			f, path, err := loadManifest(target)
			if err != nil {
				return app.fail(cmd, err)
			}

			p := f.Project
			fmt.Fprintf(app.stdout, "%s %s is valid\n", SuccessStyle.Render("✓"), CmdStyle.Render(path))
			fmt.Fprintf(app.stdout, "  %s %s\n", SubtitleStyle.Render("Device:"), p.Device)
			fmt.Fprintf(app.stdout, "  %s %s\n", SubtitleStyle.Render("Version:"), p.Version)
			if p.PartNumber != "" {
				fmt.Fprintf(app.stdout, "  %s %s\n", SubtitleStyle.Render("Part number:"), p.PartNumber)
			}
			fmt.Fprintf(app.stdout, "  %s %s\n", SubtitleStyle.Render("Checksum:"), p.ChecksumType)
			if len(p.CSU) > 0 {
				rows := make([][]string, 0, len(p.CSU))
				for _, c := range p.CSU {
					rows = append(rows, []string{c.Name, c.Dir})
				}
				fmt.Fprintln(app.stdout, renderTable([]string{"CSU", "Directory"}, rows))
			}
			return nil
		},
	}
}

// loadManifest loads target, or the manifest found in target when it is a
// directory.
func loadManifest(target string) (*manifest.File, string, error) {
	path := target
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		found, findErr := manifest.Find(target)
		if findErr != nil {
			return nil, target, manifestError(findErr, target)
		}
		path = found
	}
	f, err := manifest.Load(path)
	if err != nil {
		return nil, path, manifestError(err, path)
	}
	return f, path, nil
}

func manifestError(err error, resource string) error {
	ec := issue.NewErrorContext().
		WithOperation("load manifest").
		WithResource(resource).
		Wrap(err)
	if errors.Is(err, manifest.ErrNotFound) {
		ec.WithSuggestion("Create one with 'make-sps manifest init'").
			WithIssue(issue.ManifestNotFoundId)
	} else {
		ec.WithIssue(issue.ManifestParseErrorId)
	}
	return ec.BuildError()
}
