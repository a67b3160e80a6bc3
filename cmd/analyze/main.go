// Command analyze runs a sponsorship analysis from the terminal, streaming
// progress until the job settles and printing the final report as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/brandpulse/sponsorship-analysis-go/internal/analysis"
	"github.com/brandpulse/sponsorship-analysis-go/internal/config"
	"github.com/brandpulse/sponsorship-analysis-go/internal/models"
	"github.com/brandpulse/sponsorship-analysis-go/internal/provider"
	"github.com/brandpulse/sponsorship-analysis-go/pkg/logger"
)

func main() {
	var (
		videosFlag  = flag.String("videos", "", "comma-separated video ids to analyze (required)")
		brandsFlag  = flag.String("brands", "", "comma-separated brands to focus on (optional)")
		listFlag    = flag.Bool("list", false, "list available videos and exit")
		quietFlag   = flag.Bool("quiet", false, "suppress progress output, print only the final report")
		combineFlag = flag.Bool("local-combine", false, "run one single-video job per id and merge the reports locally instead of one batch job")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init("error", ""); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := provider.NewClient(provider.Config{
		BaseURL: cfg.Provider.BaseURL,
		APIKey:  cfg.Provider.APIKey,
		Timeout: cfg.Provider.Timeout,
	})

	if *listFlag {
		if err := listVideos(ctx, client); err != nil {
			fmt.Fprintf(os.Stderr, "failed to list videos: %v\n", err)
			os.Exit(1)
		}
		return
	}

	videoIDs := splitCSV(*videosFlag)
	if len(videoIDs) == 0 {
		fmt.Fprintln(os.Stderr, "at least one video id is required, see -videos")
		flag.Usage()
		os.Exit(2)
	}
	brands := splitCSV(*brandsFlag)

	pollerCfg := analysis.PollerConfig{
		Interval:               cfg.Poller.Interval,
		MaxConsecutiveFailures: cfg.Poller.MaxConsecutiveFailures,
		InitialBackoff:         cfg.Poller.InitialBackoff,
		MaxBackoff:             cfg.Poller.MaxBackoff,
	}

	if *combineFlag && len(videoIDs) > 1 {
		result, err := runLocalCombine(ctx, client, pollerCfg, videoIDs, brands, *quietFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
			os.Exit(1)
		}
		printResult(result)
		return
	}

	orch := analysis.NewOrchestrator(client, pollerCfg)

	handle, err := orch.Start(ctx, videoIDs, brands)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start analysis: %v\n", err)
		os.Exit(1)
	}

	job := handle.Job()
	if !*quietFlag {
		fmt.Fprintf(os.Stderr, "job %s started (%s, %d videos)\n", job.JobID, job.Mode, len(job.RequestedVideoIDs))
	}

	go func() {
		<-ctx.Done()
		handle.Cancel()
	}()

	for update := range handle.Updates() {
		if *quietFlag {
			continue
		}
		printProgress(update)
	}

	if handle.Cancelled() {
		fmt.Fprintln(os.Stderr, "analysis cancelled")
		os.Exit(1)
	}

	result, err := handle.Result(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}

	printResult(result)
}

// runLocalCombine analyzes each video as its own single-video job, in order,
// and merges the reports into one combined report on this side.
func runLocalCombine(
	ctx context.Context,
	client *provider.Client,
	pollerCfg analysis.PollerConfig,
	videoIDs, brands []string,
	quiet bool,
) (*models.AnalysisResult, error) {
	orch := analysis.NewOrchestrator(client, pollerCfg)

	reports := make([]models.SingleVideoReport, 0, len(videoIDs))
	for i, videoID := range videoIDs {
		handle, err := orch.Start(ctx, []string{videoID}, brands)
		if err != nil {
			return nil, err
		}
		stop := context.AfterFunc(ctx, handle.Cancel)
		if !quiet {
			fmt.Fprintf(os.Stderr, "job %s started for video %s (%d/%d)\n",
				handle.Job().JobID, videoID, i+1, len(videoIDs))
		}

		for update := range handle.Updates() {
			if !quiet {
				printProgress(update)
			}
		}
		stop()

		if handle.Cancelled() {
			return nil, ctx.Err()
		}
		result, err := handle.Result(ctx)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *result.Single)
	}

	combined, err := analysis.Combine(reports)
	if err != nil {
		return nil, err
	}
	return &models.AnalysisResult{Combined: combined}, nil
}

func listVideos(ctx context.Context, client *provider.Client) error {
	listing, err := client.ListVideos(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%d videos available\n", listing.TotalCount)
	for _, v := range listing.Videos {
		fmt.Printf("  %-40s %s (%.1f min)\n", v.ID, v.Filename, v.Duration)
	}
	return nil
}

func printProgress(p models.DisplayProgress) {
	stage := "?"
	if p.StageIndex >= 0 && p.StageIndex < len(p.StageList) {
		stage = string(p.StageList[p.StageIndex])
	}
	line := fmt.Sprintf("[%3d%%] %s: %s", p.Percent, stage, p.Headline)
	if len(p.BrandsFound) > 0 {
		line += " (brands: " + strings.Join(p.BrandsFound, ", ") + ")"
	}
	fmt.Fprintln(os.Stderr, line)
}

func printResult(result *models.AnalysisResult) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode report: %v\n", err)
		os.Exit(1)
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
