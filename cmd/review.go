package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-ranker/internal/backend"
	"github.com/spigell/cv-ranker/internal/ranking"
	"github.com/spigell/cv-ranker/internal/scoring"
	"github.com/spigell/cv-ranker/internal/session"
	"github.com/spigell/cv-ranker/internal/table"
)

const (
	PromptNextPage = "Next page"
	PromptPrevPage = "Previous page"
	PromptGoToPage = "Go to page"
	PromptSort     = "Sort"
	PromptFilter   = "Filter by decision"
	PromptColumns  = "Choose columns"
	PromptWeights  = "Edit weights"
	PromptOverride = "Override decision"
	PromptUpload   = "Upload documents"
	PromptReload   = "Reload ranking"
	PromptSummary  = "Summary"
	PromptExport   = "Export"
	PromptDismiss  = "Dismiss error"
	PromptQuit     = "Quit"

	PromptBack   = "back"
	PromptApply  = "Apply"
	PromptCommit = "Commit"
	PromptCancel = "Cancel"
)

const decisionColumnsHelp = `The Algorithm Decision column is the verdict of the matching service for the
total score it computed. Committing new weights recalculates Total Score only,
so after reweighting the two can disagree; Final Decision is what the reviewer
sets.`

var (
	errExit = errors.New("exit requested")

	bannerColor = color.New(color.FgRed, color.Bold)
)

var reviewPrompt = promptui.Select{
	Label: "Action",
	Items: []string{
		PromptNextPage, PromptPrevPage, PromptGoToPage, PromptSort, PromptFilter, PromptColumns,
		PromptWeights, PromptOverride, PromptUpload, PromptReload, PromptSummary, PromptExport,
		PromptDismiss, PromptQuit,
	},
	Size: 14,
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review the ranking interactively: sort, filter, reweight and override decisions",
	Long:  "Review the ranking interactively.\n\n" + decisionColumnsHelp,
	Run: func(cmd *cobra.Command, _ []string) {
		review(cmd)
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	reviewCmd.Flags().IntP("page-size", "p", table.DefaultPageSize, "rows per page")
	reviewCmd.Flags().Bool("no-color", false, "disable colored decision badges")

	viper.BindPFlag("review.page-size", reviewCmd.Flags().Lookup("page-size"))
}

func review(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, config := bootstrap()

	s := newSession(ctx, config, logger)
	defer s.Close()

	noColor, _ := cmd.Flags().GetBool("no-color")
	renderer := &table.Renderer{Colors: !noColor && !color.NoColor}

	for {
		if err := s.Render(os.Stdout, renderer); err != nil {
			logger.Fatal("rendering the ranking", zap.Error(err))
		}
		printBanner(s)

		_, action, err := reviewPrompt.Run()
		if err != nil {
			if isPromptExit(err) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleReviewAction(ctx, action, s, config, renderer, logger); err != nil {
			if errors.Is(err, errExit) {
				logger.Info("exiting", zap.String("reason", "got quit from prompt"))
				return
			}
			if isPromptExit(err) {
				continue
			}
			logger.Warn("action failed", zap.String("action", action), zap.Error(err))
		}
	}
}

func isPromptExit(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, promptui.ErrAbort)
}

func handleReviewAction(ctx context.Context, action string, s *session.Session, config *Config, renderer *table.Renderer, logger *zap.Logger) error {
	switch action {
	case PromptNextPage:
		return s.NextPage()
	case PromptPrevPage:
		return s.PrevPage()
	case PromptGoToPage:
		return goToPage(s)
	case PromptSort:
		return sortAction(s)
	case PromptFilter:
		return filterAction(s)
	case PromptColumns:
		return columnsAction(s)
	case PromptWeights:
		return weightsAction(s)
	case PromptOverride:
		return overrideAction(s)
	case PromptUpload:
		return uploadAction(ctx, s, logger)
	case PromptReload:
		return s.Load(ctx)
	case PromptSummary:
		return renderer.RenderSummary(os.Stdout, s.Snapshot())
	case PromptExport:
		return exportAction(s, config, logger)
	case PromptDismiss:
		s.DismissBanner()
		return nil
	case PromptQuit:
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func goToPage(s *session.Session) error {
	var total int
	s.Inspect(func(v *table.View) { total = v.TotalPages() })

	p := promptui.Prompt{
		Label: fmt.Sprintf("Page (1-%d)", total),
		Validate: func(input string) error {
			n, err := strconv.Atoi(strings.TrimSpace(input))
			if err != nil || n < 1 || n > total {
				return fmt.Errorf("enter a number between 1 and %d", total)
			}
			return nil
		},
	}

	input, err := p.Run()
	if err != nil {
		return err
	}
	n, _ := strconv.Atoi(strings.TrimSpace(input))
	return s.Page(n)
}

func sortAction(s *session.Session) error {
	var (
		keys   []string
		labels []string
	)
	s.Inspect(func(v *table.View) {
		current, dir := v.SortState()
		keys = append([]string{table.TotalScoreKey}, v.Batch().Sections...)
		for _, k := range keys {
			label := k
			if k == table.TotalScoreKey {
				label = table.TotalScoreColumn
			}
			if k == current {
				label = fmt.Sprintf("%s (%s, select to reverse)", label, dir)
			}
			labels = append(labels, label)
		}
	})

	p := promptui.Select{Label: "Sort by", Items: append(labels, PromptBack), Size: len(labels) + 1}
	idx, _, err := p.Run()
	if err != nil {
		return err
	}
	if idx >= len(keys) {
		return nil
	}
	return s.Sort(keys[idx])
}

func filterAction(s *session.Session) error {
	items := []string{table.All.String()}
	for _, d := range ranking.Decisions {
		items = append(items, d.String())
	}

	p := promptui.Select{Label: "Show candidates with final decision", Items: append(items, PromptBack)}
	_, selected, err := p.Run()
	if err != nil || selected == PromptBack {
		return err
	}

	f, err := table.ParseFilter(selected)
	if err != nil {
		return err
	}
	return s.Filter(f)
}

// columnsAction stages a column selection. Nothing changes until Apply.
func columnsAction(s *session.Session) error {
	var sections, selected []string
	s.Inspect(func(v *table.View) {
		sections = slices.Clone(v.Batch().Sections)
		selected = v.Columns()
	})

	for {
		items := make([]string, 0, len(sections)+2)
		for _, c := range sections {
			mark := "[ ]"
			if slices.Contains(selected, c) {
				mark = "[x]"
			}
			items = append(items, mark+" "+c)
		}
		items = append(items, PromptApply, PromptCancel)

		p := promptui.Select{Label: "Toggle columns", Items: items, Size: len(items)}
		idx, choice, err := p.Run()
		if err != nil {
			_ = s.CancelColumns()
			return err
		}

		switch choice {
		case PromptApply:
			return s.ApplyColumns()
		case PromptCancel:
			return s.CancelColumns()
		}

		column := sections[idx]
		if i := slices.Index(selected, column); i >= 0 {
			selected = slices.Delete(selected, i, i+1)
		} else {
			selected = append(selected, column)
		}
		if err := s.StageColumns(selected); err != nil {
			return err
		}
	}
}

// weightsAction edits the draft weights. Commit is refused while the total is not 100.
func weightsAction(s *session.Session) error {
	if err := s.ReopenWeights(); err != nil {
		return err
	}

	for {
		state := s.WeightState()
		if len(state.Sections) == 0 {
			return errors.New("no sections to weigh, load a ranking first")
		}

		items := make([]string, 0, len(state.Sections)+2)
		for _, section := range state.Sections {
			items = append(items, fmt.Sprintf("%s: %s%%", section, table.FormatScore(state.Draft[section])))
		}
		items = append(items, PromptCommit, PromptCancel)

		label := fmt.Sprintf("Weights (total %s%%)", table.FormatScore(state.Sum))
		if state.ServiceTotals {
			label += ", service totals in effect until commit"
		}
		if state.Message != "" {
			label = bannerColor.Sprint(state.Message)
		}

		p := promptui.Select{Label: label, Items: items, Size: len(items)}
		idx, choice, err := p.Run()
		if err != nil {
			return err
		}

		switch choice {
		case PromptCommit:
			err := s.CommitWeights()
			var verr *scoring.ValidationError
			if errors.As(err, &verr) {
				fmt.Fprintln(os.Stderr, bannerColor.Sprint(verr.Error()))
				continue
			}
			return err
		case PromptCancel:
			return s.CancelWeights()
		}

		section := state.Sections[idx]
		value, err := promptWeight(section, state.Draft[section])
		if err != nil {
			if isPromptExit(err) {
				continue
			}
			return err
		}
		if err := s.EditWeight(section, value); err != nil {
			return err
		}
	}
}

func promptWeight(section string, current float64) (float64, error) {
	p := promptui.Prompt{
		Label:   fmt.Sprintf("%s weight (0-100)", section),
		Default: table.FormatScore(current),
		Validate: func(input string) error {
			v, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
			if err != nil || v < 0 || v > 100 {
				return errors.New("enter a number between 0 and 100")
			}
			return nil
		},
	}

	input, err := p.Run()
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(input), 64)
}

func overrideAction(s *session.Session) error {
	var (
		identities []string
		labels     []string
	)
	s.Inspect(func(v *table.View) {
		for _, item := range v.PageRows() {
			identities = append(identities, item.Identity)
			labels = append(labels, fmt.Sprintf("%s / %s / algorithm: %s / final: %s",
				item.Identity, table.FormatScore(item.TotalScore), item.AlgorithmicDecision, item.FinalDecision))
		}
	})
	if len(identities) == 0 {
		return errors.New("no candidates on this page")
	}

	candidatePrompt := promptui.Select{Label: "Choose a candidate and press ENTER", Items: append(labels, PromptBack)}
	idx, _, err := candidatePrompt.Run()
	if err != nil || idx >= len(identities) {
		return err
	}

	decisions := make([]string, 0, len(ranking.Decisions))
	for _, d := range ranking.Decisions {
		decisions = append(decisions, d.String())
	}
	decisionPrompt := promptui.Select{Label: "Final decision", Items: append(decisions, PromptBack)}
	_, selected, err := decisionPrompt.Run()
	if err != nil || selected == PromptBack {
		return err
	}

	decision, err := ranking.ParseDecision(selected)
	if err != nil {
		return err
	}
	return s.Override(identities[idx], decision)
}

func uploadAction(ctx context.Context, s *session.Session, logger *zap.Logger) error {
	p := promptui.Prompt{Label: "Files to upload (comma separated)"}
	input, err := p.Run()
	if err != nil {
		return err
	}

	var paths []string
	for _, path := range strings.Split(input, ",") {
		if path = strings.TrimSpace(path); path != "" {
			paths = append(paths, path)
		}
	}

	docs, err := backend.ReadDocuments(paths)
	if err != nil {
		return err
	}

	result, err := s.Upload(ctx, docs)
	if err != nil {
		return err
	}

	logger.Info("upload finished",
		zap.Int("uploaded", len(result.Succeeded())),
		zap.Int("failed", len(result.Failed())),
	)
	return nil
}

func exportAction(s *session.Session, config *Config, logger *zap.Logger) error {
	p := promptui.Prompt{Label: "Export to (.xlsx or .csv)", Default: config.Export.Path}
	path, err := p.Run()
	if err != nil {
		return err
	}

	path = strings.TrimSpace(path)
	if err := s.Export(path, config.Export.Sheet); err != nil {
		return err
	}

	logger.Info("ranking exported", zap.String("filename", path))
	return nil
}
