package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/pairsgame/api"
	"github.com/wricardo/mcp-training/pairsgame/validate"
)

var (
	passLabel = color.New(color.FgGreen, color.Bold).SprintFunc()
	failLabel = color.New(color.FgRed, color.Bold).SprintFunc()
	warnLabel = color.New(color.FgYellow).SprintFunc()
	nameLabel = color.New(color.FgCyan).SprintFunc()
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate preset files (defaults to every preset in --config-dir)",
		ArgsUsage: "[file or directory...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			results, err := collectResults(cmd.String("config-dir"), cmd.Args().Slice())
			if err != nil {
				return err
			}

			if failed := printValidation(color.Output, results); failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d presets failed validation", failed, len(results)), 1)
			}
			return nil
		},
	}
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Summarize move caps and image sets of preset files",
		ArgsUsage: "[file or directory...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			results, err := collectResults(cmd.String("config-dir"), cmd.Args().Slice())
			if err != nil {
				return err
			}
			printAnalysis(color.Output, results)
			return nil
		},
	}
}

func hashPasswordCommand() *cli.Command {
	return &cli.Command{
		Name:      "hash-password",
		Usage:     "Print the bcrypt hash to use as ADMIN_PASSWORD_HASH",
		ArgsUsage: "<password>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return cli.Exit("usage: pairs hash-password <password>", 2)
			}
			hash, err := api.HashPassword(cmd.Args().First())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.Root().Writer, hash)
			return nil
		},
	}
}

// collectResults validates the given paths, or the config directory when
// none are given
func collectResults(configDir string, paths []string) ([]validate.ValidationResult, error) {
	if len(paths) == 0 {
		paths = []string{configDir}
	}

	var results []validate.ValidationResult
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			results = append(results, validate.File(p))
			continue
		}
		dirResults, err := validate.Dir(p)
		if err != nil {
			return nil, err
		}
		results = append(results, dirResults...)
	}
	return results, nil
}

// printValidation writes one block per file and returns the failure count
func printValidation(w io.Writer, results []validate.ValidationResult) int {
	failed := 0
	for _, r := range results {
		status := passLabel("PASS")
		if !r.Valid {
			status = failLabel("FAIL")
			failed++
		}
		fmt.Fprintf(w, "%s %s\n", status, nameLabel(r.File))
		for _, e := range r.Errors {
			fmt.Fprintf(w, "     error: %s\n", e)
		}
		for _, warning := range r.Warnings {
			fmt.Fprintf(w, "     %s %s\n", warnLabel("warning:"), warning)
		}
	}

	fmt.Fprintf(w, "\n%d presets checked, %d failed\n", len(results), failed)
	return failed
}

func printAnalysis(w io.Writer, results []validate.ValidationResult) {
	for _, r := range results {
		fmt.Fprintf(w, "\n=== %s ===\n", nameLabel(r.File))
		if !r.Valid {
			fmt.Fprintf(w, "%s %s\n", failLabel("invalid:"), strings.Join(r.Errors, "; "))
			continue
		}

		s := validate.Summarize(r.File, r.Preset)
		fmt.Fprintf(w, "Name: %s\n", s.Name)
		if s.MoveCap == 0 {
			fmt.Fprintln(w, "Move cap: unlimited")
		} else {
			slack := fmt.Sprintf("%d flips of slack", s.Slack)
			if s.Slack < 0 {
				slack = warnLabel("cannot be completed")
			}
			fmt.Fprintf(w, "Move cap: %d (%s)\n", s.MoveCap, slack)
		}
		fmt.Fprintf(w, "Images: %s set, %d distinct\n", s.ImageSource, s.DistinctImages)
	}
}
