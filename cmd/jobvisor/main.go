package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/CZERTAINLY/jobvisor/internal/log"
	"github.com/CZERTAINLY/jobvisor/internal/model"
	"github.com/CZERTAINLY/jobvisor/internal/supervisor"
	"gopkg.in/yaml.v3"

	"github.com/spf13/cobra"
)

var (
	userConfigPath string // /default/config/path/jobvisor on given OS
	configPath     string // actual config file used (if loaded)
	config         model.Config

	flagConfigFilePath string // value of --config flag
	flagVerbose        bool   // value of --verbose flag
	flagJobs           int    // value of run --jobs flag
	flagLatency        string // value of run --latency flag
	flagOutput         string // value of run --output flag
)

func init() {
	d, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	userConfigPath = filepath.Join(d, "jobvisor")
}

func main() {
	// root flags
	rootCmd.PersistentFlags().StringVar(&flagConfigFilePath, "config", "", "Config file to load - default is jobvisor.yaml in current directory or in "+userConfigPath)
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")

	runCmd.Flags().IntVar(&flagJobs, "jobs", -1, "number of jobs to spawn (overrides jobs.count)")
	runCmd.Flags().StringVar(&flagLatency, "latency", "", "duration of each job (overrides jobs.latency)")
	runCmd.Flags().StringVar(&flagOutput, "output", "", "report format text|json|yaml (overrides service.output)")

	// never print messages
	rootCmd.SilenceErrors = true

	// parse or create a config, setup logging
	rootCmd.PersistentPreRunE = initJobvisor

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("jobvisor failed", "err", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "jobvisor",
	Short:        "Runs a set of jobs and stops them gracefully on a signal",
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run spawns the configured jobs and reports their final status",
	RunE:  doRun,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provide version of a jobvisor",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("jobvisor: version info not available")
			return
		}

		if configPath != "" {
			fmt.Printf("config:   %s\n", configPath)
		}
		fmt.Printf("jobvisor: %s\n", info.Main.Version)
		fmt.Printf("go:       %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Printf("commit:   %s\n", s.Value)
			case "vcs.time":
				fmt.Printf("date:     %s\n", s.Value)
			case "vcs.modified":
				fmt.Printf("dirty:    %s\n", s.Value)
			}
		}
		fmt.Println()
	},
}

func doRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := applyRunFlags(&config); err != nil {
		return err
	}

	attrs := slog.Group("jobvisor",
		slog.String("cmd", "run"),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)

	jobs, err := jobsFromConfig(config.Jobs)
	if err != nil {
		return err
	}
	sources, err := sourcesFromConfig(config.Shutdown)
	if err != nil {
		return err
	}

	report, err := supervisor.New(sources).Run(ctx, jobs)
	if err != nil {
		return err
	}
	return writeReport(cmd.OutOrStdout(), report, config.Service.Output)
}

func applyRunFlags(cfg *model.Config) error {
	if flagJobs >= 0 {
		cfg.Jobs.Count = flagJobs
	}
	if flagLatency != "" {
		cfg.Jobs.Latency = flagLatency
		if _, err := cfg.Jobs.LatencyDuration(); err != nil {
			return err
		}
	}
	if flagOutput != "" {
		cfg.Service.Output = flagOutput
	}
	return nil
}

func initJobvisor(cmd *cobra.Command, _ []string) error {
	if envConfig, ok := os.LookupEnv("JOBVISORCONFIG"); ok {
		configPath = envConfig
	} else if flagConfigFilePath != "" {
		configPath = flagConfigFilePath
	} else {
		for _, d := range []string{userConfigPath, "."} {
			path := filepath.Join(d, "jobvisor.yaml")
			if exists(path) {
				configPath = path
				break
			}
		}
	}

	// store default configuration
	if configPath == "" {
		config = model.DefaultConfig()
		configPath = filepath.Join(userConfigPath, "jobvisor.yaml")
		err := os.MkdirAll(filepath.Dir(configPath), 0755)
		if err != nil {
			return fmt.Errorf("creating directory %s: %w", filepath.Dir(configPath), err)
		}

		f, err := os.Create(configPath)
		if err != nil {
			return fmt.Errorf("creating file %s: %w", configPath, err)
		}
		defer func() {
			_ = f.Close()
		}()
		enc := yaml.NewEncoder(f)
		enc.SetIndent(2)
		err = enc.Encode(config)
		if err != nil {
			return fmt.Errorf("storing configuration: %w", err)
		}
	} else {
		f, err := os.Open(configPath)
		if err != nil {
			return fmt.Errorf("opening config file: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		config, err = model.LoadConfig(f)
		if err != nil {
			for _, d := range model.CueErrDetails(err) {
				slog.Error("invalid configuration", d.Attr("detail"))
			}
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	// --verbose has a precedence over config file
	if flagVerbose {
		config.Service.Verbose = true
	}

	// initialize logging
	logger, err := log.New(os.Stderr, config.Service.LogFormat, config.Service.Verbose)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	slog.Debug("jobvisor run", "configPath", configPath)
	slog.Debug("jobvisor run", "config", config)
	return nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
