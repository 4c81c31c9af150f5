package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/corpusdedup/doubri/internal/config"
	"github.com/corpusdedup/doubri/internal/doubrirun"
	"github.com/corpusdedup/doubri/internal/logging"
	"github.com/corpusdedup/doubri/internal/merge"
	"github.com/corpusdedup/doubri/internal/progress"
	"github.com/corpusdedup/doubri/internal/statusserver"
)

func newMergeCmd() *cobra.Command {
	var (
		out          string
		reverse      bool
		start        int
		end          int
		consoleLevel string
		fileLevel    string
		dashboardOn  bool
		statusAddr   string
	)

	cmd := &cobra.Command{
		Use:   "merge <src...>",
		Short: "Merge already-deduplicated groups' bucket indices across corpora",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("reverse") {
				reverse = cfg.Dedup.Reverse
			}
			if !cmd.Flags().Changed("start") {
				start = cfg.LSH.Begin
			}
			if !cmd.Flags().Changed("end") {
				end = cfg.LSH.End
			}
			if !cmd.Flags().Changed("dashboard") {
				dashboardOn = cfg.Dashboard.Enabled
			}
			if !cmd.Flags().Changed("console-level") {
				consoleLevel = cfg.Logging.ConsoleLevel
			}
			if !cmd.Flags().Changed("file-level") {
				fileLevel = cfg.Logging.FileLevel
			}
			if out == "" {
				out = args[0]
			}

			logger, closeLog, err := logging.New(
				logging.ParseLevel(consoleLevel), logging.ParseLevel(fileLevel), out+".log")
			if err != nil {
				return err
			}
			defer closeLog()

			runID := doubrirun.NewID()
			logger = logger.With("run_id", runID, "command", "merge")

			var srv *statusserver.Server
			if cfg.Dashboard.StatusServerEnabled {
				srv = statusserver.New(runID, "merge", out, end-start, cfg.Dashboard.BroadcastsPerSecond)
				go srv.Listen(statusAddr, logger)
				defer srv.Shutdown()
			}

			var program *tea.Program
			if dashboardOn {
				model := progress.NewDashboard(progress.KindMerge, out, end-start)
				program = tea.NewProgram(model)
				go func() { program.Run() }()
				defer program.Quit()
			}

			onBand := func(r merge.BandResult) {
				ev := progress.BandEvent{
					Band: r.Band, TotalBands: r.TotalBands, NumItems: r.NumItems,
					NumActiveBefore: r.NumActiveBefore, NumActiveAfter: r.NumActiveAfter,
					NumDetected: r.NumDetected, DetectionRatio: r.DetectionRatio, Elapsed: r.Elapsed,
				}
				if srv != nil {
					srv.Publish(ev)
				}
				if program != nil {
					program.Send(progress.EventMsg(ev))
				}
			}

			runErr := merge.Run(logger, args, reverse, start, end, merge.WithOnBand(onBand))
			if srv != nil {
				srv.Finish(runErr)
			}
			if program != nil {
				program.Send(progress.DoneMsg{Err: runErr})
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "basename for the merge's own log file (defaults to the first source)")
	cmd.Flags().BoolVarP(&reverse, "reverse", "r", false, "on tie, keep the higher-index source instead of the lower-index one")
	cmd.Flags().IntVarP(&start, "start", "s", 0, "first band to merge")
	cmd.Flags().IntVarP(&end, "end", "e", 40, "one past the last band to merge")
	cmd.Flags().StringVarP(&consoleLevel, "console-level", "l", "info", "console log level (debug|info|warn|error)")
	cmd.Flags().StringVarP(&fileLevel, "file-level", "L", "debug", "file log level (debug|info|warn|error)")
	cmd.Flags().BoolVar(&dashboardOn, "dashboard", false, "show a live TUI progress dashboard")
	cmd.Flags().StringVar(&statusAddr, "status-addr", ":8088", "address for the optional HTTP/WebSocket status server")

	return cmd
}
