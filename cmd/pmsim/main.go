package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pmsim/internal/config"
	"github.com/san-kum/pmsim/internal/control"
	"github.com/san-kum/pmsim/internal/logging"
	"github.com/san-kum/pmsim/internal/metrics"
	"github.com/san-kum/pmsim/internal/sim"
	"github.com/san-kum/pmsim/internal/stepper"
	"github.com/san-kum/pmsim/internal/storage"
	"github.com/san-kum/pmsim/internal/tui"
)

var (
	dataDir  string
	logLevel string
	// run
	duration    float64
	recordEvery int
	motionFile  string
	configFile  string
	preset      string
	overrides   []string
	debugDir    string
	jsonOut     string
	hold        bool
	kp          float64
	kd          float64
	live        bool
	liveEvery   int
	// plot
	column string
	height int
	width  int
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	nameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Width(36)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Width(24)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "pmsim",
		Short:        "penalty-method rigid-body simulator",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".pmsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [model...]",
		Short: "run simulation",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().Float64Var(&duration, "time", 1.0, "duration in seconds, 0 runs until the motion ends")
	runCmd.Flags().IntVar(&recordEvery, "record-every", 1, "record every n-th step")
	runCmd.Flags().StringVar(&motionFile, "motion", "", "reference motion (yaml or csv) replayed on the first model")
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().StringArrayVar(&overrides, "set", nil, "override a property, key=value")
	runCmd.Flags().StringVar(&debugDir, "debug-dir", "", "write a debug log per run into this directory")
	runCmd.Flags().StringVar(&jsonOut, "json", "", "also export the run to this JSON file")
	runCmd.Flags().BoolVar(&hold, "hold", false, "hold the initial posture of models without motion")
	runCmd.Flags().Float64Var(&kp, "kp", 100.0, "servo kp")
	runCmd.Flags().Float64Var(&kd, "kd", 10.0, "servo kd")
	runCmd.Flags().BoolVar(&live, "live", false, "show a live view of the run; servo gains can be tuned with --hold")
	runCmd.Flags().IntVar(&liveEvery, "live-every", 10, "refresh the live view every n-th step")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "show and edit configuration files",
	}
	configCmd.PersistentFlags().StringVar(&preset, "preset", "", "start from a preset")

	showCmd := &cobra.Command{
		Use:   "show [file]",
		Short: "print a configuration record",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showConfig,
	}
	setCmd := &cobra.Command{
		Use:   "set [file] [key] [value]",
		Short: "set one property in a configuration file",
		Args:  cobra.ExactArgs(3),
		RunE:  setConfig,
	}
	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range config.ListPresets() {
				fmt.Println(p)
			}
		},
	}
	configCmd.AddCommand(showCmd, setCmd, presetsCmd)

	propsCmd := &cobra.Command{
		Use:   "props [file]",
		Short: "show the property table",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showProperties,
	}
	propsCmd.Flags().StringVar(&preset, "preset", "", "start from a preset")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a recorded column",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&column, "column", "", "column to plot (default: height of the first body)")
	plotCmd.Flags().IntVar(&height, "height", 10, "plot height")
	plotCmd.Flags().IntVar(&width, "width", 80, "plot width")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	rootCmd.AddCommand(runCmd, configCmd, propsCmd, listCmd, plotCmd, exportCSVCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(level)
}

// loadConfig starts from the preset or the defaults and overlays the file.
func loadConfig(path string) (config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		p, ok := config.GetPreset(preset)
		if !ok {
			return cfg, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	return config.LoadOnto(cfg, path)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	for _, kv := range overrides {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("override %q is not key=value", kv)
		}
		if cfg, err = cfg.Set(key, value); err != nil {
			return err
		}
	}

	if live {
		logger = logger.WithOptions(zap.IncreaseLevel(zap.ErrorLevel))
	}
	opts := []sim.Option{sim.WithLogger(logger)}
	if debugDir != "" {
		opts = append(opts, sim.WithStepperOptions(stepper.WithDebugLog(debugDir)))
	}
	s, err := sim.FromFiles(cfg, args, motionFile, opts...)
	if err != nil {
		return err
	}
	var servos []tui.Tunable
	if hold {
		for i := range s.Bodies() {
			if i == 0 && motionFile != "" {
				continue
			}
			servo := control.NewServo(kp, 0, kd, nil)
			s.SetController(i, servo)
			servos = append(servos, servo)
		}
	}
	s.AddMetric(metrics.NewEnergy(cfg.Gravity))
	s.AddMetric(metrics.NewEnergyDrift(cfg.Gravity))
	s.AddMetric(metrics.NewStability(50))
	s.AddMetric(metrics.NewControlEffort())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rc := sim.RunConfig{Duration: duration, RecordEvery: recordEvery}
	title := strings.Join(args, ", ")
	fmt.Printf("running %s (%s, dt=%g)\n", title, cfg.DynamicsMode, cfg.TimeStep)
	start := time.Now()
	var result *sim.Result
	if live {
		feed := tui.NewFeed(s.ContactForce, liveEvery, servos...)
		s.AddObserver(feed)
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		uiErr := tui.RunLive(tui.NewLive(title, duration, feed), cancel, func() error {
			result, err = s.Run(ctx, rc)
			return err
		})
		if uiErr != nil {
			logger.Error("live view failed", zap.Error(uiErr))
		}
	} else {
		result, err = s.Run(ctx, rc)
	}
	elapsed := time.Since(start)
	if err != nil {
		if result == nil {
			return err
		}
		logger.Error("simulation stopped", zap.Error(err), zap.Int("steps", result.Steps))
	}

	meta := storage.RunMetadata{
		Model:        strings.Join(args, ","),
		Motion:       motionFile,
		TimeStep:     cfg.TimeStep,
		Duration:     float64(result.Steps) * cfg.TimeStep,
		DynamicsMode: cfg.DynamicsMode.String(),
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(meta, result)
	if err != nil {
		return err
	}
	if jsonOut != "" {
		if err := storage.ExportJSON(jsonOut, meta, result); err != nil {
			return err
		}
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.Steps)
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	fmt.Println("\nmetrics:")
	for name, val := range result.Metrics {
		fmt.Printf("  %s: %.6f\n", name, val)
	}
	return nil
}

func showConfig(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg.Store())
}

func setConfig(cmd *cobra.Command, args []string) error {
	path, key, value := args[0], args[1], args[2]
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	cfg, err = cfg.Set(key, value)
	if err != nil {
		return err
	}
	return config.Save(path, cfg)
}

func showProperties(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("pmsim properties"))
	for _, p := range cfg.Properties() {
		line := nameStyle.Render(p.Name) + valueStyle.Render(p.Value)
		if len(p.Symbols) > 0 {
			line += dimStyle.Render(strings.Join(p.Symbols, " | "))
		}
		fmt.Println(line)
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tDURATION\tDT\tMODE\tSTEPS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.3fs\t%.4fs\t%s\t%d\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.TimeStep,
			run.DynamicsMode,
			run.Steps,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	states, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(states.Rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	name := column
	if name == "" {
		for _, h := range states.Header {
			if strings.HasSuffix(h, ".z") {
				name = h
				break
			}
		}
	}
	data, ok := states.Column(name)
	if !ok {
		return fmt.Errorf("unknown column %q (available: %s)", name, strings.Join(states.Header, ", "))
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("samples: %d\n\n", len(data))

	graph := asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(fmt.Sprintf("%s vs time (%.3fs)", name, states.Times[len(states.Times)-1])),
	)
	fmt.Println(graph)
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if _, err := st.Load(args[0]); err != nil {
		return err
	}
	return st.ExportCSV(args[0], os.Stdout)
}
