package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/roman-dr/drsim/internal/catalog"
	"github.com/roman-dr/drsim/internal/log"
	"github.com/roman-dr/drsim/internal/model"
	"github.com/roman-dr/drsim/internal/plan"
	"github.com/roman-dr/drsim/internal/service"
	"github.com/roman-dr/drsim/internal/sim"
	"github.com/roman-dr/drsim/internal/synth"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	flagObsPlan        string
	flagOutputFilename string
	flagMaxWorkers     int
	flagChunkSize      int
	flagRA             float64
	flagDec            float64
	flagRadius         float64
	flagMasterRA       float64
	flagMasterDec      float64
	flagMasterRadius   float64
	flagPerVisit       bool
	flagFilters        []string
	flagUsePhotoz      bool
	flagFluxCatalog    string
	flagDedupPrecision int
	flagFormat         string

	flagInputFilename string
	flagSCAIDs        []int
	flagProgram       int
	flagLevel         int
	flagDate          string
	flagSimulator     string
)

func catalogFlags() {
	f := catalogCmd.Flags()
	f.StringVar(&flagObsPlan, "obs-plan", "", "observation plan file (.toml or .ecsv)")
	f.StringVar(&flagOutputFilename, "output-filename", "", "catalog output path - default derives from the plan filename")
	f.IntVar(&flagMaxWorkers, "max-workers", 0, "parallel workers - 0 takes the config value, 1 runs sequentially")
	f.IntVar(&flagChunkSize, "chunk-size", -1, "rows per write chunk - 0 writes the whole catalog at once")
	f.Float64Var(&flagRA, "ra", 0, "region center right ascension in degrees - overrides the plan bounding circle")
	f.Float64Var(&flagDec, "dec", 0, "region center declination in degrees")
	f.Float64Var(&flagRadius, "radius", 0, "region radius in degrees")
	f.Float64Var(&flagMasterRA, "master-ra", 0, "wide single-catalog center right ascension - forces one master catalog")
	f.Float64Var(&flagMasterDec, "master-dec", 0, "wide single-catalog center declination")
	f.Float64Var(&flagMasterRadius, "master-radius", 0, "wide single-catalog radius in degrees")
	f.BoolVar(&flagPerVisit, "per-visit", false, "generate one catalog per visit and merge with deduplication")
	f.StringSliceVar(&flagFilters, "filters", nil, "bandpass filters - default is the full WFI set")
	f.BoolVar(&flagUsePhotoz, "use-photoz", false, "apply photo-z flux corrections from --flux-catalog")
	f.StringVar(&flagFluxCatalog, "flux-catalog", "", "external flux catalog (.ecsv or .parquet)")
	f.IntVar(&flagDedupPrecision, "dedup-precision", -1, "coordinate decimal places for deduplication keys")
	f.StringVar(&flagFormat, "format", "", "catalog output format: ecsv or parquet")

	_ = catalogCmd.MarkFlagRequired("obs-plan")
	catalogCmd.MarkFlagsRequiredTogether("use-photoz", "flux-catalog")
}

func imagesFlags() {
	f := imagesCmd.Flags()
	f.StringVar(&flagObsPlan, "obs-plan", "", "observation plan file (.toml or .ecsv)")
	f.StringVar(&flagInputFilename, "input-filename", "", "input catalog path - default derives from the plan filename")
	f.IntVar(&flagMaxWorkers, "max-workers", 0, "parallel workers - 0 takes the config value, 1 runs sequentially")
	f.IntSliceVar(&flagSCAIDs, "sca-ids", nil, "detector ids to simulate - a single negative value expands to every detector")
	f.IntVar(&flagProgram, "program", 1, "program number encoded in output filenames")
	f.IntVar(&flagLevel, "level", 0, "simulation product level")
	f.StringVar(&flagDate, "date", "", "observation date passed to the simulator")
	f.StringVar(&flagSimulator, "simulator", "", "image simulator binary")

	_ = imagesCmd.MarkFlagRequired("obs-plan")
}

func doCatalog(cmd *cobra.Command, _ []string) error {
	ctx := log.ContextAttrs(cmd.Context(),
		slog.String("run", uuid.NewString()),
		slog.String("plan", flagObsPlan),
	)
	start := time.Now()

	obsPlan, err := plan.Read(flagObsPlan)
	if err != nil {
		return fmt.Errorf("reading observation plan: %w", err)
	}
	slog.InfoContext(ctx, "observation plan loaded", "passes", len(obsPlan.Passes))

	run := service.CatalogRun{
		Plan:           obsPlan,
		PlanPath:       flagObsPlan,
		Output:         flagOutputFilename,
		Format:         config.Format(),
		Filters:        config.Filters(),
		Radius:         catalogRadius(cmd),
		PerVisit:       flagPerVisit,
		MaxWorkers:     config.MaxWorkers(),
		ChunkSize:      config.ChunkSize(),
		DedupPrecision: config.DedupPrecision(),
		Assembler: catalog.Assembler{
			Galaxies: synth.Galaxies{},
			RefStars: synth.ReferenceStars{},
			Filler:   synth.FillerStars{N: config.FillerStars()},
			Seed:     config.Seed(),
		},
	}

	if len(flagFilters) > 0 {
		run.Filters = flagFilters
	}
	if flagMaxWorkers > 0 {
		run.MaxWorkers = flagMaxWorkers
	}
	if flagChunkSize >= 0 {
		run.ChunkSize = flagChunkSize
	}
	if flagDedupPrecision >= 0 {
		run.DedupPrecision = flagDedupPrecision
	}
	if flagFormat != "" {
		run.Format = flagFormat
	}
	if cmd.Flags().Changed("ra") || cmd.Flags().Changed("dec") {
		run.Region = &catalog.Region{RA: flagRA, Dec: flagDec, Radius: run.Radius}
	}
	if cmd.Flags().Changed("master-ra") || cmd.Flags().Changed("master-dec") {
		// a wide master region always wins and implies a single catalog
		run.PerVisit = false
		run.Region = &catalog.Region{RA: flagMasterRA, Dec: flagMasterDec, Radius: flagMasterRadius}
	}
	if run.Region != nil && run.Region.Radius <= 0 {
		run.Region.Radius = model.DefaultRadius
	}
	if flagUsePhotoz {
		run.FluxCatalog = flagFluxCatalog
		run.Assembler.Flux = catalog.LabelFluxUpdater{}
	}

	if err := run.Do(ctx); err != nil {
		return err
	}
	slog.InfoContext(ctx, "catalog generation finished", "elapsed", time.Since(start))
	return nil
}

func doImages(cmd *cobra.Command, _ []string) error {
	ctx := log.ContextAttrs(cmd.Context(),
		slog.String("run", uuid.NewString()),
		slog.String("plan", flagObsPlan),
	)
	start := time.Now()

	obsPlan, err := plan.Read(flagObsPlan)
	if err != nil {
		return fmt.Errorf("reading observation plan: %w", err)
	}

	input := flagInputFilename
	if input == "" {
		// mirror what the catalog command writes for this plan
		input = plan.CatalogName(flagObsPlan)
		ext := filepath.Ext(input)
		input = strings.TrimSuffix(input, ext) + "." + config.Format()
	}

	binary := config.Simulator()
	if flagSimulator != "" {
		binary = flagSimulator
	}
	level := config.Level()
	if flagLevel > 0 {
		level = flagLevel
	}
	date := config.Date()
	if flagDate != "" {
		date = flagDate
	}
	workers := config.MaxWorkers()
	if flagMaxWorkers > 0 {
		workers = flagMaxWorkers
	}

	var scaIDs []int // nil keeps the plan's per-exposure detector lists
	if len(flagSCAIDs) > 0 {
		scaIDs = plan.SCAList(flagSCAIDs)
	}

	run := service.ImagesRun{
		Plan:       obsPlan,
		Catalog:    input,
		SCAIDs:     scaIDs,
		Program:    flagProgram,
		MaxWorkers: workers,
		Simulator: sim.New(binary,
			sim.WithLevel(level),
			sim.WithDate(date),
			sim.WithRNGSeed(config.RNGSeed()),
			sim.WithMATableNumber(config.MATableNumber()),
		),
	}

	if err := run.Do(ctx); err != nil {
		return err
	}
	slog.InfoContext(ctx, "image simulation finished", "elapsed", time.Since(start))
	return nil
}

// catalogRadius resolves the region radius: the --radius flag wins, then the
// config file. Zero otherwise, which keeps the plan's bounding-circle radius
// in master mode.
func catalogRadius(cmd *cobra.Command) float64 {
	if cmd.Flags().Changed("radius") {
		return flagRadius
	}
	if r, ok := config.RadiusOverride(); ok {
		return r
	}
	return 0
}
