// Command adinsert is the CLI entrypoint for the digital-human
// ad-insertion pipeline (spec 4.1, 6). It loads configuration, wires the
// orchestrator's external capabilities, and runs a single video or a
// batch directory, exiting 0 on success, 1 on failure, and 130 on
// SIGINT/SIGTERM — grounded in cmd/api/main.go's signal-handling block,
// restructured from an HTTP-server lifecycle into a one-shot CLI run.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bobarin/adinsert/internal/adcopy"
	"github.com/bobarin/adinsert/internal/catalog"
	"github.com/bobarin/adinsert/internal/config"
	"github.com/bobarin/adinsert/internal/logging"
	"github.com/bobarin/adinsert/internal/media"
	"github.com/bobarin/adinsert/internal/orchestrator"
	"github.com/bobarin/adinsert/internal/pipeline"
	"github.com/bobarin/adinsert/internal/planner"
	"github.com/bobarin/adinsert/internal/remotejob"
	"github.com/bobarin/adinsert/internal/scene"
	"github.com/bobarin/adinsert/internal/separation"
	"github.com/bobarin/adinsert/internal/transcript"
	"github.com/bobarin/adinsert/internal/workspace"
)

func main() {
	var (
		outputDir string
		batch     bool
		device    string
	)

	root := &cobra.Command{
		Use:   "adinsert <input>",
		Short: "Insert a digital-human advertisement into a narrated video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], outputDir, batch, device)
		},
		SilenceUsage: true,
	}

	root.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (defaults to $OUTPUT_DIR)")
	root.Flags().BoolVar(&batch, "batch", false, "treat <input> as a directory and process every .mp4 file in it")
	root.Flags().StringVar(&device, "device", "cpu", "device hint forwarded to transcription and source-separation (cuda|cpu)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(input, outputDir string, batch bool, device string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logging.New("adinsert")

	if err := remotejob.VerifyTemplates(cfg.WorkflowImageEdit, cfg.WorkflowVoiceClone, cfg.WorkflowDigitalHuman); err != nil {
		return err
	}

	if err := workspace.CleanupExpired(cfg.CacheDir, time.Duration(cfg.TempFilesTTLSeconds)*time.Second); err != nil {
		log.Warn("expired-workspace reaping failed: %v", err)
	}

	adCatalog, err := catalog.Load(cfg.AdCatalogPath, log)
	if err != nil {
		return fmt.Errorf("load ad catalog: %w", err)
	}

	o, err := orchestrator.New(
		cfg,
		log,
		media.NewProber(),
		transcript.NewWhisperCLI(cfg.WhisperBinPath, cfg.WhisperModel),
		separation.NewDemucs(cfg.DemucsBinPath, cfg.DemucsModel),
		scene.NewCLIDetector(cfg.FaceDetectorBinPath, cfg.FaceDetectorConfidenceThreshold, cfg.FaceDetectorMinFaceSizePx),
		planner.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, log),
		adcopy.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.AdScriptMinLength, cfg.AdScriptMaxLength, log),
		adCatalog,
		remotejob.New(cfg.BaseURL(), log),
	)
	if err != nil {
		return fmt.Errorf("build orchestrator: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn("received interrupt, cancelling in-flight work")
		cancel()
	}()

	if batch {
		results := o.ProcessBatch(ctx, input, outputDir, device)
		if ctx.Err() != nil {
			os.Exit(130)
		}
		return exitFromBatch(results)
	}

	result := o.ProcessOne(ctx, input, outputDir, device)
	if ctx.Err() != nil {
		os.Exit(130)
	}
	return exitFromResult(result)
}

func exitFromResult(result pipeline.PipelineResult) error {
	if !result.Success {
		return fmt.Errorf("%s", result.ErrorMessage)
	}
	fmt.Println(result.OutputPath)
	return nil
}

func exitFromBatch(results []pipeline.PipelineResult) error {
	failed := 0
	for _, r := range results {
		if r.Success {
			fmt.Println(r.OutputPath)
		} else {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %s\n", r.VideoID, r.ErrorMessage)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d/%d video(s) failed", failed, len(results))
	}
	return nil
}
