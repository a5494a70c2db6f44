package config

// Config holds app configuration
type Config struct {
	// InputFile is the .arh header file; the .ard data file must sit next to it
	InputFile string `mapstructure:"input"`

	// OutputPath is the output directory for extraction commands and the
	// output file for hash-list. Empty selects a default next to InputFile.
	OutputPath string `mapstructure:"output"`

	// GamePath and Hash select the entry for extract-file and extract-hash
	GamePath string `mapstructure:"file"`
	Hash     string `mapstructure:"hash"`

	// WordlistDir holds text files of candidate game paths used to
	// recover names for hashed entries
	WordlistDir string `mapstructure:"wordlists"`

	// NoUnwrap keeps xbc1 containers intact unless the header flags the
	// entry as compressed
	NoUnwrap bool `mapstructure:"no_unwrap"`

	DryRun       bool   `mapstructure:"dry_run"`
	LogLevel     string `mapstructure:"log_level"`
	LogOutputDir string `mapstructure:"log_output_dir"`
}
