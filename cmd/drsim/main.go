package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/roman-dr/drsim/internal/log"
	"github.com/roman-dr/drsim/internal/model"

	"github.com/spf13/cobra"
)

var (
	userConfigPath string // default config dir for drsim on given OS
	configPath     string // actual config file used (if loaded)
	config         model.Config

	flagConfigFilePath string // value of --config flag
	flagVerbose        bool   // value of --verbose flag
)

func init() {
	d, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	userConfigPath = filepath.Join(d, "drsim")

	rootCmd.PersistentFlags().StringVar(&flagConfigFilePath, "config", "", "Config file to load - default is drsim.yaml in current directory or in "+userConfigPath)
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")

	// never print messages
	rootCmd.SilenceErrors = true

	// parse the config, setup logging
	rootCmd.PersistentPreRunE = initDrsim

	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(imagesCmd)
	rootCmd.AddCommand(versionCmd)

	catalogFlags()
	imagesFlags()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("drsim failed", "err", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "drsim",
	Short:        "Expand an observation plan into catalog and image simulation jobs",
	SilenceUsage: true,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "generate input catalogs from an observation plan",
	RunE:  doCatalog,
}

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "run the image simulator for every exposure in an observation plan",
	RunE:  doImages,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provides the version of drsim",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("drsim: version info not available")
			return
		}

		if configPath != "" {
			fmt.Printf("config: %s\n", configPath)
		}
		fmt.Printf("drsim:  %s\n", info.Main.Version)
		fmt.Printf("go:     %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Printf("commit: %s\n", s.Value)
			case "vcs.time":
				fmt.Printf("date:   %s\n", s.Value)
			case "vcs.modified":
				fmt.Printf("dirty:  %s\n", s.Value)
			}
		}
		fmt.Println()
	},
}

func initDrsim(cmd *cobra.Command, _ []string) error {
	if envConfig, ok := os.LookupEnv("DRSIMCONFIG"); ok {
		configPath = envConfig
	} else if flagConfigFilePath != "" {
		configPath = flagConfigFilePath
	} else {
		for _, d := range []string{userConfigPath, "."} {
			path := filepath.Join(d, "drsim.yaml")
			if exists(path) {
				configPath = path
				break
			}
		}
	}

	if configPath == "" {
		config = model.DefaultConfig()
	} else {
		f, err := os.Open(configPath)
		if err != nil {
			return fmt.Errorf("opening config file: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		cfg, err := model.LoadConfig(f)
		if err != nil {
			for _, d := range model.CueErrDetails(err) {
				slog.Error("invalid configuration", d.Attr("detail"))
			}
			return fmt.Errorf("parsing config: %w", err)
		}
		config = *cfg
	}

	// --verbose has a precedence over config file
	verbose := config.Verbose() || flagVerbose

	sink, err := log.Sink(config.LogSink())
	if err != nil {
		return fmt.Errorf("opening log sink: %w", err)
	}
	slog.SetDefault(log.New(sink, verbose))

	slog.Debug("drsim run", "configPath", configPath)
	return nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info != nil && info.Mode().IsRegular()
}
