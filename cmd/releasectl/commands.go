package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"release-analyzer/internal/analyses"
	"release-analyzer/internal/bootstrap"
	"release-analyzer/internal/extract"
	"release-analyzer/internal/prompt"
	"release-analyzer/internal/sessions"
	"release-analyzer/internal/shared/config"
	"release-analyzer/internal/shared/telemetry"
)

type rootOptions struct {
	noColor bool
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "releasectl",
		Short:         "Analyze earnings release PDFs from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			telemetry.SetOutput(cmd.ErrOrStderr(), level, "console")
		},
	}
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline events to stderr")

	root.AddCommand(newExtractCmd(), newPromptCmd(), newAnalyzeCmd())
	return root
}

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file.pdf>",
		Short: "Print the text extracted from a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), doc.Text)
			info(cmd.ErrOrStderr(), "%d pages, %d characters", doc.PageCount, len([]rune(doc.Text)))
			return nil
		},
	}
}

func newPromptCmd() *cobra.Command {
	var version string
	cmd := &cobra.Command{
		Use:   "prompt <file.pdf>",
		Short: "Print the prompt that would be sent to the model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := prompt.LoadCatalog()
			if err != nil {
				return err
			}
			tpl, ok := catalog.Get(version)
			if !ok {
				return fmt.Errorf("unknown prompt version %q (available: %s)", version, strings.Join(catalog.Versions(), ", "))
			}
			doc, err := readDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			composed := prompt.Compose(tpl, doc.Text)
			fmt.Fprint(cmd.OutOrStdout(), composed.Text)
			suffix := ""
			if composed.Truncated {
				suffix = " (truncated)"
			}
			info(cmd.ErrOrStderr(), "template %s, %d document characters%s, hash %s",
				composed.Version, composed.DocumentChars, suffix, prompt.Fingerprint(composed)[:12])
			return nil
		},
	}
	cmd.Flags().StringVar(&version, "version", prompt.DefaultVersion, "prompt template version")
	return cmd
}

type analyzeOptions struct {
	company string
	apiKey  string
	html    string
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze <file.pdf>",
		Short: "Run the full analysis and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.company, "company", analyses.DefaultCompanyKey, "company key recorded with the analysis")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", "", "LLM API key (defaults to the environment, then a prompt)")
	cmd.Flags().StringVar(&opts.html, "html", "", "also write the rendered report HTML to this path")
	return cmd
}

func runAnalyze(cmd *cobra.Command, path string, opts *analyzeOptions) error {
	cfg := config.Load()
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	apiKey := strings.TrimSpace(opts.apiKey)
	if apiKey == "" && !cfg.HasServerCredential() {
		apiKey, err = promptAPIKey(cmd.InOrStdin(), cmd.ErrOrStderr(), cfg.LLMProvider)
		if err != nil {
			return err
		}
	}

	factory, err := bootstrap.NewClientFactory(cfg)
	if err != nil {
		return err
	}
	svc := &analyses.Service{
		PromptVersion: cfg.PromptVersion,
		NewClient:     factory,
		ServerAPIKey:  cfg.LLMAPIKey,
		Provider:      cfg.LLMProvider,
		Model:         cfg.LLMModel,
	}

	spin := newSpinner(cmd.ErrOrStderr(), fmt.Sprintf("Analyzing %s with %s...", filepath.Base(path), cfg.LLMModel))
	spin.Start()
	out, _, err := svc.Analyze(cmd.Context(), sessions.State{ID: "releasectl"}, analyses.Request{
		FileName:   filepath.Base(path),
		Data:       data,
		CompanyKey: opts.company,
		APIKey:     apiKey,
	})
	spin.Stop()
	if err != nil {
		return describeError(err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), out.Report)
	if out.Summary != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), verdictLine(out.Summary.Score, string(out.Summary.Recommendation), out.Summary.Model))
	} else {
		warn(cmd.ErrOrStderr(), "score and recommendation not found in the report")
	}
	if out.Truncated {
		warn(cmd.ErrOrStderr(), "document text was truncated to %d characters", out.DocumentChars)
	}

	if opts.html != "" {
		if err := os.WriteFile(opts.html, []byte(out.HTML), 0o644); err != nil {
			return err
		}
		info(cmd.ErrOrStderr(), "HTML written to %s", opts.html)
	}
	return nil
}

func readDocument(ctx context.Context, path string) (extract.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return extract.Document{}, err
	}
	if err := extract.ValidateUpload(filepath.Base(path), data); err != nil {
		return extract.Document{}, err
	}
	return extract.ExtractPDF(ctx, data)
}

func describeError(err error) error {
	switch {
	case errors.Is(err, analyses.ErrConfiguration):
		return fmt.Errorf("no API key: set LLM_API_KEY or pass --api-key")
	case errors.Is(err, analyses.ErrInvalidUpload):
		return fmt.Errorf("not a PDF: %w", err)
	}
	return err
}

func promptAPIKey(in io.Reader, out io.Writer, provider string) (string, error) {
	fmt.Fprintf(out, "%s API key: ", provider)
	key, err := readSecret(in)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("an API key is required")
	}
	return key, nil
}
