package model

import (
	"io"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	_ "embed"
)

const (
	LogStderr  = "stderr"
	LogStdout  = "stdout"
	LogDiscard = "discard"

	FormatECSV    = "ecsv"
	FormatParquet = "parquet"
)

// DefaultSimulator is the image simulation binary invoked per job.
const DefaultSimulator = "romanisim-make-image"

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource)
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	if err := compiled.Validate(); err != nil {
		panic(err)
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
	if err := schema.Validate(); err != nil {
		panic(err)
	}
}

type Config struct {
	Version int     `json:"version"` // fixed 0 for now
	Run     Run     `json:"run,omitempty"`
	Catalog Catalog `json:"catalog,omitempty"`
	Images  Images  `json:"images,omitempty"`
}

// Run holds settings shared by every subcommand.
type Run struct {
	MaxWorkers *int    `json:"max_workers,omitempty"` // nil/<=1 => sequential
	ChunkSize  *int    `json:"chunk_size,omitempty"`  // 0 => single write
	Verbose    *bool   `json:"verbose,omitempty"`
	Log        *string `json:"log,omitempty"` // "stderr"|"stdout"|"discard"|path
}

// Catalog generation settings.
type Catalog struct {
	Seed           *int     `json:"seed,omitempty"`
	Radius         *float64 `json:"radius,omitempty"` // search radius, degrees
	Filters        []string `json:"filters,omitempty"`
	FillerStars    *int     `json:"filler_stars,omitempty"`
	DedupPrecision *int     `json:"dedup_precision,omitempty"` // decimal places
	Format         *string  `json:"format,omitempty"`          // "ecsv" | "parquet"
}

// Images simulation settings.
type Images struct {
	Simulator     *string `json:"simulator,omitempty"` // binary path
	Level         *int    `json:"level,omitempty"`
	Date          *string `json:"date,omitempty"` // ISO8601
	MATableNumber *int    `json:"ma_table_number,omitempty"`
	RNGSeed       *int    `json:"rng_seed,omitempty"`
}

// Catalog synthesis uses a fixed seed so identical regions reproduce
// identical catalogs across runs.
const DefaultSeed = 42

const (
	DefaultRadius         = 0.3
	DefaultFillerStars    = 1000
	DefaultDedupPrecision = 6
	DefaultLevel          = 1
	DefaultMATableNumber  = 109
	DefaultRNGSeed        = 1
	DefaultDate           = "2027-06-01T00:00:00"
)

// DefaultFilters is the full WFI filter complement used when a plan or
// config does not restrict the bandpass list.
func DefaultFilters() []string {
	return []string{"F062", "F087", "F106", "F129", "F158", "F184", "F213"}
}

// LoadConfig validates YAML from r against the CUE schema and decodes it.
func LoadConfig(r io.Reader) (*Config, error) {
	yamlFile, err := yaml.Extract("config.yaml", r)
	if err != nil {
		return nil, err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return nil, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return nil, err
	}

	return &out, nil
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{Version: 0}
}

// Seed returns the configured synthesis seed or the fixed default.
func (c Config) Seed() int {
	if c.Catalog.Seed != nil {
		return *c.Catalog.Seed
	}
	return DefaultSeed
}

func (c Config) Radius() float64 {
	if c.Catalog.Radius != nil {
		return *c.Catalog.Radius
	}
	return DefaultRadius
}

// RadiusOverride reports the configured search radius only when the config
// file actually sets one. Callers that fall back to a plan-derived radius
// must not mistake the built-in default for an operator choice.
func (c Config) RadiusOverride() (float64, bool) {
	if c.Catalog.Radius == nil {
		return 0, false
	}
	return *c.Catalog.Radius, true
}

func (c Config) Filters() []string {
	if len(c.Catalog.Filters) > 0 {
		return c.Catalog.Filters
	}
	return DefaultFilters()
}

func (c Config) FillerStars() int {
	if c.Catalog.FillerStars != nil {
		return *c.Catalog.FillerStars
	}
	return DefaultFillerStars
}

func (c Config) DedupPrecision() int {
	if c.Catalog.DedupPrecision != nil {
		return *c.Catalog.DedupPrecision
	}
	return DefaultDedupPrecision
}

func (c Config) Format() string {
	if c.Catalog.Format != nil {
		return *c.Catalog.Format
	}
	return FormatECSV
}

func (c Config) MaxWorkers() int {
	if c.Run.MaxWorkers != nil {
		return *c.Run.MaxWorkers
	}
	return 1
}

func (c Config) ChunkSize() int {
	if c.Run.ChunkSize != nil {
		return *c.Run.ChunkSize
	}
	return 0
}

func (c Config) Verbose() bool {
	return c.Run.Verbose != nil && *c.Run.Verbose
}

func (c Config) LogSink() string {
	if c.Run.Log != nil {
		return *c.Run.Log
	}
	return LogStderr
}

func (c Config) Simulator() string {
	if c.Images.Simulator != nil {
		return *c.Images.Simulator
	}
	return DefaultSimulator
}

func (c Config) Level() int {
	if c.Images.Level != nil {
		return *c.Images.Level
	}
	return DefaultLevel
}

func (c Config) Date() string {
	if c.Images.Date != nil {
		return *c.Images.Date
	}
	return DefaultDate
}

func (c Config) MATableNumber() int {
	if c.Images.MATableNumber != nil {
		return *c.Images.MATableNumber
	}
	return DefaultMATableNumber
}

func (c Config) RNGSeed() int {
	if c.Images.RNGSeed != nil {
		return *c.Images.RNGSeed
	}
	return DefaultRNGSeed
}
