package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/mitchellh/mapstructure"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-ranker/internal/backend"
	"github.com/spigell/cv-ranker/internal/table"
)

var offerCmd = &cobra.Command{
	Use:   "offer",
	Short: "Manage job offers on the matching service",
}

var offerCreateCmd = &cobra.Command{
	Use:   "create -f OFFER.yaml [CV...]",
	Short: "Create a job offer, optionally with résumés to match",
	Run: func(cmd *cobra.Command, args []string) {
		createOffer(cmd, args)
	},
}

var offerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List job offers, newest first",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		listOffers()
	},
}

var offerShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one job offer",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		showOffer(args[0])
	},
}

var offerDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a job offer and the résumés stored with it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		deleteOffer(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(offerCmd)
	offerCmd.AddCommand(offerCreateCmd, offerListCmd, offerShowCmd, offerDeleteCmd)

	offerCreateCmd.Flags().StringP("file", "f", "", "job offer file (yaml or json)")
	offerCreateCmd.MarkFlagRequired("file")

	offerDeleteCmd.Flags().BoolP("yes", "y", false, "delete without asking")
}

// readOffer decodes a job offer file with its own viper instance so its keys
// never mix with the cli config.
func readOffer(path string) (*backend.JobOffer, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading job offer: %w", err)
	}

	var offer backend.JobOffer
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &offer,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decoding job offer %s: %w", path, err)
	}
	return &offer, nil
}

func createOffer(cmd *cobra.Command, cvs []string) {
	ctx := context.Background()
	logger, config := bootstrap()

	path, _ := cmd.Flags().GetString("file")
	offer, err := readOffer(path)
	if err != nil {
		logger.Fatal("reading the job offer", zap.Error(err))
	}

	if err := offer.Validate(); err != nil {
		logger.Fatal("validating the job offer", zap.Error(err))
	}

	docs, err := backend.ReadDocuments(cvs)
	if err != nil {
		logger.Fatal("reading cv files", zap.Error(err))
	}

	client := newBackendClient(config, logger)
	id, err := client.CreateJobOffer(ctx, offer, docs)
	if err != nil {
		logger.Fatal("creating the job offer", zap.Error(err))
	}

	fmt.Println(id)
}

func listOffers() {
	logger, config := bootstrap()

	offers, err := newBackendClient(config, logger).ListJobOffers(context.Background())
	if err != nil {
		logger.Fatal("listing job offers", zap.Error(err))
	}
	if err := writeOffers(os.Stdout, offers); err != nil {
		logger.Fatal("rendering job offers", zap.Error(err))
	}
}

func showOffer(id string) {
	logger, config := bootstrap()

	offer, err := newBackendClient(config, logger).GetJobOffer(context.Background(), id)
	if err != nil {
		logger.Fatal("getting the job offer", zap.Error(err))
	}
	if err := writeOffer(os.Stdout, offer); err != nil {
		logger.Fatal("rendering the job offer", zap.Error(err))
	}
}

func deleteOffer(cmd *cobra.Command, id string) {
	logger, config := bootstrap()

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		p := promptui.Prompt{Label: fmt.Sprintf("Delete job offer %s", id), IsConfirm: true}
		if _, err := p.Run(); err != nil {
			logger.Info("deletion cancelled", zap.String("id", id))
			return
		}
	}

	if err := newBackendClient(config, logger).DeleteJobOffer(context.Background(), id); err != nil {
		logger.Fatal("deleting the job offer", zap.Error(err))
	}
}

func writeOffers(w io.Writer, offers []backend.StoredJobOffer) error {
	if len(offers) == 0 {
		_, err := fmt.Fprintln(w, "No job offers")
		return err
	}

	out := tablewriter.NewTable(w)
	out.Header([]string{"ID", "Title", "Location", "Positions", "Created", "CVs"})
	for _, o := range offers {
		cvs := "no"
		if o.HasCVs || len(o.CVFiles) > 0 {
			cvs = "yes"
		}
		if err := out.Append([]string{
			o.ID, o.Title, o.Location, strconv.Itoa(o.Positions), o.CreatedAt, cvs,
		}); err != nil {
			return err
		}
	}
	return out.Render()
}

func writeOffer(w io.Writer, o *backend.StoredJobOffer) error {
	weights := o.Weights.WeightSet()

	out := tablewriter.NewTable(w)
	out.Header([]string{"Field", "Value"})
	rows := [][]string{
		{"ID", o.ID},
		{"Title", o.Title},
		{"Location", o.Location},
		{"Positions", strconv.Itoa(o.Positions)},
		{"Years of experience", strconv.Itoa(o.YearsOfExperience)},
		{"Education", o.Education},
		{"Requirements", strings.Join(o.Requirements, "; ")},
		{"Experience details", strings.Join(o.ExperienceDetails, "; ")},
		{"Skills", strings.Join(o.Skills, ", ")},
		{"Languages", strings.Join(o.Languages, ", ")},
		{"Created", o.CreatedAt},
		{"CV files", strings.Join(o.CVFiles, ", ")},
	}
	for _, section := range weights.Sections() {
		rows = append(rows, []string{section + " weight", table.FormatScore(weights[section]) + "%"})
	}
	if err := out.Bulk(rows); err != nil {
		return err
	}
	return out.Render()
}

