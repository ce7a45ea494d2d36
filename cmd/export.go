package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-ranker/internal/session"
	"github.com/spigell/cv-ranker/internal/table"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the current ranking to an xlsx or csv file",
	Long:  "Export the current ranking to an xlsx or csv file.\n\n" + decisionColumnsHelp,
	Run: func(cmd *cobra.Command, _ []string) {
		exportRanking(cmd)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("output", "o", "", "output file, .xlsx or .csv (default is export.path from config)")
	exportCmd.Flags().String("sheet", "", "sheet name for xlsx output")
	exportCmd.Flags().StringP("sort", "s", "", "sort by a section or total_score (default is batch order, or total_score with --desc)")
	exportCmd.Flags().Bool("desc", false, "sort in descending order")
	exportCmd.Flags().StringP("filter", "f", "", "keep only candidates with this final decision")
	exportCmd.Flags().StringSlice("columns", nil, "section columns to include (default all)")

	viper.BindPFlag("export.path", exportCmd.Flags().Lookup("output"))
	viper.BindPFlag("export.sheet", exportCmd.Flags().Lookup("sheet"))
}

func exportRanking(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := bootstrap()

	s := newSession(ctx, config, logger)
	defer s.Close()

	if banner := s.Banner(); banner != "" {
		logger.Fatal("loading the ranking", zap.String("error", banner))
	}

	key, _ := cmd.Flags().GetString("sort")
	desc, _ := cmd.Flags().GetBool("desc")
	if err := applySort(s, key, desc); err != nil {
		logger.Fatal("sorting", zap.Error(err))
	}

	if raw, _ := cmd.Flags().GetString("filter"); raw != "" {
		f, err := table.ParseFilter(raw)
		if err != nil {
			logger.Fatal("parsing filter", zap.Error(err))
		}
		if err := s.Filter(f); err != nil {
			logger.Fatal("filtering", zap.Error(err))
		}
	}

	if columns, _ := cmd.Flags().GetStringSlice("columns"); len(columns) > 0 {
		for i := range columns {
			columns[i] = strings.TrimSpace(columns[i])
		}
		if err := s.StageColumns(columns); err != nil {
			logger.Fatal("choosing columns", zap.Error(err))
		}
		s.ApplyColumns()
	}

	path := config.Export.Path
	if err := s.Export(path, config.Export.Sheet); err != nil {
		logger.Fatal("exporting", zap.Error(err))
	}

	renderer := &table.Renderer{Colors: !color.NoColor}
	if err := renderer.RenderSummary(os.Stdout, s.Snapshot()); err != nil {
		logger.Fatal("rendering summary", zap.Error(err))
	}
	logger.Info("ranking exported", zap.String("filename", path))
}

// applySort sorts by key in the requested direction. --desc alone sorts by total score.
func applySort(s *session.Session, key string, desc bool) error {
	key = strings.TrimSpace(key)
	if key == "" {
		if !desc {
			return nil
		}
		key = table.TotalScoreKey
	}

	if err := s.Sort(key); err != nil {
		return err
	}

	want := table.Ascending
	if desc {
		want = table.Descending
	}
	var current table.Direction
	s.Inspect(func(v *table.View) { _, current = v.SortState() })
	if current != want {
		return s.Sort(key)
	}
	return nil
}
