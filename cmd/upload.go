package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/cv-ranker/internal/backend"
	"github.com/spigell/cv-ranker/internal/table"
)

var uploadCmd = &cobra.Command{
	Use:   "upload FILE...",
	Short: "Upload résumés for matching and print the refreshed ranking",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		upload(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

func upload(_ *cobra.Command, paths []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, config := bootstrap()

	docs, err := backend.ReadDocuments(paths)
	if err != nil {
		logger.Fatal("reading documents", zap.Error(err))
	}

	s := newSession(ctx, config, logger)
	defer s.Close()

	result, err := s.Upload(ctx, docs)
	if err != nil {
		logger.Fatal("uploading documents", zap.Error(err))
	}

	ok := color.New(color.FgGreen)
	for _, f := range result.Files {
		if f.Success {
			fmt.Println(ok.Sprint("✓ " + f.Filename))
			continue
		}
		fmt.Println(bannerColor.Sprintf("✗ %s %s", f.Filename, f.Message))
	}

	if err := s.Render(os.Stdout, &table.Renderer{Colors: !color.NoColor}); err != nil {
		logger.Fatal("rendering the ranking", zap.Error(err))
	}
	printBanner(s)

	if len(result.Failed()) > 0 {
		os.Exit(1)
	}
}
