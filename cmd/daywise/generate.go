package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/terra-clan/daywise/internal/config"
	"github.com/terra-clan/daywise/internal/logging"
	"github.com/terra-clan/daywise/internal/models"
	"github.com/terra-clan/daywise/internal/storage"
	"github.com/terra-clan/daywise/internal/store"
)

var (
	generateName     string
	generateDays     int
	generateTemplate string
	generateNoSave   bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <syllabus-file>",
	Short: "Generate one roadmap from a syllabus file and print it as JSON",
	Long: `Generate a roadmap from a plain-text syllabus file.

The roadmap is saved to the configured storage backend unless --no-save
is given, then printed to stdout. Logs go to stderr.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateName, "name", "n", "", "Roadmap name (default: file name)")
	generateCmd.Flags().IntVarP(&generateDays, "days", "d", 7, "Number of days to plan")
	generateCmd.Flags().StringVarP(&generateTemplate, "template", "t", "", "Prompt template (default: PROMPT_TEMPLATE)")
	generateCmd.Flags().BoolVar(&generateNoSave, "no-save", false, "Do not persist the roadmap")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireLLM(); err != nil {
		return err
	}

	slog.SetDefault(logging.New(os.Stderr, cfg.Log.Format, cfg.Log.Level))

	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read syllabus: %w", err)
	}

	name := generateName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	var repo storage.Repository = storage.NewMemoryRepository()
	if !generateNoSave {
		if repo, err = openRepository(ctx, cfg); err != nil {
			return err
		}
	}
	defer repo.Close()

	_, prompts, err := loadTemplates(cfg.Templates, generateTemplate)
	if err != nil {
		return err
	}

	generator, _, err := newAgent(ctx, cfg, prompts)
	if err != nil {
		return err
	}

	roadmaps, err := store.New(ctx, repo, generator, store.WithMaxTargetDays(cfg.Generation.MaxTargetDays))
	if err != nil {
		return err
	}
	defer roadmaps.Close()

	roadmap, err := roadmaps.Generate(ctx, models.GenerateRequest{
		SyllabusContent:    string(content),
		Name:               name,
		TargetDays:         generateDays,
		SourceSyllabusName: filepath.Base(path),
	})
	if err != nil {
		slog.Error("generation failed", "error", err)
		return errors.New(store.FailureMessage(err))
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(roadmap)
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
