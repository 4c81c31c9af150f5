package main

import (
	"bufio"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/corpusdedup/doubri/internal/config"
	"github.com/corpusdedup/doubri/internal/dedup"
	"github.com/corpusdedup/doubri/internal/doubrirun"
	"github.com/corpusdedup/doubri/internal/logging"
	"github.com/corpusdedup/doubri/internal/progress"
	"github.com/corpusdedup/doubri/internal/statusserver"
	"github.com/corpusdedup/doubri/internal/workpool"
)

func newDedupCmd() *cobra.Command {
	var (
		reverse      bool
		consoleLevel string
		fileLevel    string
		dashboardOn  bool
		statusAddr   string
	)

	cmd := &cobra.Command{
		Use:   "dedup <basename>",
		Short: "Deduplicate one group's MinHash files, reading file paths from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			basename := args[0]

			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("reverse") {
				reverse = cfg.Dedup.Reverse
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

			logger, closeLog, err := logging.New(
				logging.ParseLevel(consoleLevel), logging.ParseLevel(fileLevel), basename+".log")
			if err != nil {
				return err
			}
			defer closeLog()

			runID := doubrirun.NewID()
			logger = logger.With("run_id", runID, "command", "dedup")

			d := dedup.New(logger, 0, workpool.New(cfg.Dedup.Workers))
			d.TrimIndices = cfg.Dedup.TrimIndices

			scanner := bufio.NewScanner(os.Stdin)
			scanner.Buffer(make([]byte, 0, 1<<16), 1<<20)
			for scanner.Scan() {
				line := scanner.Text()
				if line == "" {
					continue
				}
				d.AppendFile(line)
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("dedup: read file list: %w", err)
			}

			if err := d.Initialize(); err != nil {
				return err
			}
			if err := d.WriteSourceList(basename + ".src"); err != nil {
				return err
			}

			var srv *statusserver.Server
			if cfg.Dashboard.StatusServerEnabled {
				srv = statusserver.New(runID, "dedup", basename, d.End-d.Begin, cfg.Dashboard.BroadcastsPerSecond)
				go srv.Listen(statusAddr, logger)
				defer srv.Shutdown()
			}

			var program *tea.Program
			if dashboardOn {
				model := progress.NewDashboard(progress.KindDedup, basename, d.End-d.Begin)
				program = tea.NewProgram(model)
				go func() {
					program.Run()
				}()
				defer program.Quit()
			}

			d.OnBand = func(r dedup.BandResult) {
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

			runErr := d.Run(basename, reverse)
			if srv != nil {
				srv.Finish(runErr)
			}
			if program != nil {
				program.Send(progress.DoneMsg{Err: runErr})
			}
			if runErr != nil {
				return runErr
			}

			return d.SaveFlag(basename + ".dup")
		},
	}

	cmd.Flags().BoolVarP(&reverse, "reverse", "r", false, "survivor is the maximum ordinal instead of the minimum")
	cmd.Flags().StringVarP(&consoleLevel, "console-level", "l", "info", "console log level (debug|info|warn|error)")
	cmd.Flags().StringVarP(&fileLevel, "file-level", "L", "debug", "file log level (debug|info|warn|error)")
	cmd.Flags().BoolVar(&dashboardOn, "dashboard", false, "show a live TUI progress dashboard")
	cmd.Flags().StringVar(&statusAddr, "status-addr", ":8088", "address for the optional HTTP/WebSocket status server")

	return cmd
}
