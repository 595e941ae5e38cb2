package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Champ-Deep/ChampMail-sub000/internal/db"
	"github.com/Champ-Deep/ChampMail-sub000/internal/logging"
	"github.com/Champ-Deep/ChampMail-sub000/internal/observability"
	"github.com/Champ-Deep/ChampMail-sub000/internal/pipeline"
)

type runOptions struct {
	campaignID     string
	prospectListID string
	description    string
	targetAudience string
	style          string
	goals          string
	verbose        bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the content pipeline for one campaign",
		Long: `Runs essence extraction -> prospect research -> segmentation -> pitch generation -> personalization -> HTML rendering, then issues tracking links and schedules the sends.

Transient AI and store failures are retried with the configured retry policy.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.campaignID, "campaign", "", "Campaign ID (required)")
	cmd.Flags().StringVar(&opts.prospectListID, "list", "", "Prospect list ID (defaults to the campaign's list)")
	cmd.Flags().StringVarP(&opts.description, "description", "d", "", "Campaign brief (required)")
	cmd.Flags().StringVar(&opts.targetAudience, "audience", "", "Target audience")
	cmd.Flags().StringVar(&opts.style, "style", "", "Writing style")
	cmd.Flags().StringVar(&opts.goals, "goals", "", "Campaign goals")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print progress and a summary of the generated emails")
	_ = cmd.MarkFlagRequired("campaign")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func runPipeline(cmd *cobra.Command, opts *runOptions) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := logging.NewLoggerWithService("outreach", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer := observability.NewPrinter(cmd.OutOrStdout())
	var onProgress pipeline.ProgressCallback
	if opts.verbose {
		onProgress = func(e pipeline.ProgressEvent) {
			printer.PrintProgress(e.Stage, e.Progress, e.Message)
		}
	}

	a, err := newApp(ctx, cfg, logger, onProgress)
	if err != nil {
		return err
	}
	defer a.Close()

	req := pipeline.RunRequest{
		CampaignID:     opts.campaignID,
		ProspectListID: opts.prospectListID,
		Description:    opts.description,
		TargetAudience: opts.targetAudience,
		Style:          opts.style,
		Goals:          opts.goals,
	}
	campaign, err := a.db.GetCampaign(ctx, opts.campaignID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		if req.ProspectListID == "" {
			return fmt.Errorf("campaign %s not found and --list not given", opts.campaignID)
		}
	case err != nil:
		return err
	default:
		if req.ProspectListID == "" {
			req.ProspectListID = campaign.ProspectListID
		}
		req.UTM = campaign.UTM
	}

	var result *pipeline.Result
	err = a.tasks.Run(ctx, "pipeline:"+opts.campaignID, func(ctx context.Context) error {
		var runErr error
		result, runErr = a.pipeline.Run(ctx, req)
		return runErr
	})
	if err != nil {
		if run, ok, _ := a.pipeline.Status(ctx, opts.campaignID); ok {
			printer.PrintRun(run)
		}
		return err
	}

	printer.PrintRun(&result.Run)
	if opts.verbose {
		printer.PrintEmails(result.Emails)
		printer.PrintSchedule(result.Schedule)
	}
	return nil
}
