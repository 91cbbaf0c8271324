package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"trivia-service/internal/app"
	"trivia-service/internal/config"
	"trivia-service/internal/domain"
	"trivia-service/internal/logging"
)

// questionFile is the on-disk corpus format.
type questionFile struct {
	Questions []domain.Question `yaml:"questions"`
}

// NewImportCmd loads a question corpus into the configured store.
func NewImportCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import questions from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := logging.NewLogger(cfg.Debug)
			defer logger.Sync()
			ctx := logging.WithLogger(cmd.Context(), logger)

			if cfg.Store.Driver == config.DriverMemory {
				return fmt.Errorf("import needs a persistent store driver, got %q", cfg.Store.Driver)
			}
			store, closeStore, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			_, err = importQuestions(ctx, store, file)
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to the questions YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// loadQuestions reads a corpus file, dropping rows that have no answer.
func loadQuestions(ctx context.Context, path string) ([]domain.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f questionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	logger := logging.FromContext(ctx)
	questions := f.Questions[:0]
	for _, q := range f.Questions {
		if q.Answer == "" {
			logger.Infow("skipping question without answer", "category", q.Category, "show", q.ShowNumber)
			continue
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func importQuestions(ctx context.Context, importer app.QuestionImporter, path string) (int, error) {
	questions, err := loadQuestions(ctx, path)
	if err != nil {
		return 0, err
	}
	n, err := importer.AddQuestions(ctx, questions)
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", path, err)
	}
	logging.FromContext(ctx).Infow("questions imported", "file", path, "count", n)
	return n, nil
}
