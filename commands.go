package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ossyrian/ardtool/internal/ard"
	"github.com/ossyrian/ardtool/internal/config"
	"github.com/ossyrian/ardtool/internal/extractor"
)

func init() {
	extractAllCmd := &cobra.Command{
		Use:   "extract-all",
		Short: "Extracts all files from a .arh/.ard archive",
		Args:  cobra.NoArgs,
		RunE:  withArchive(runExtractAll),
	}
	extractAllCmd.Flags().Bool("dry-run", false, "decode every entry without writing output (validation)")
	viper.BindPFlag("dry_run", extractAllCmd.Flags().Lookup("dry-run"))

	extractFileCmd := &cobra.Command{
		Use:   "extract-file",
		Short: "Extracts a single file from a .arh/.ard archive",
		Args:  cobra.NoArgs,
		RunE:  withArchive(runExtractFile),
	}
	extractFileCmd.Flags().StringP("file", "f", "", "game path of the file to extract (required)")
	extractFileCmd.MarkFlagRequired("file")
	viper.BindPFlag("file", extractFileCmd.Flags().Lookup("file"))

	extractHashCmd := &cobra.Command{
		Use:   "extract-hash",
		Short: "Extracts a single file by hash from a .arh/.ard archive",
		Example: `  ardtool extract-hash -i bf3.arh --hash DA7EB7B09B34DD80
  ardtool extract-hash -i bf3.arh --hash 0xDA7EB7B09B34DD80 -o out`,
		Args: cobra.NoArgs,
		RunE: withArchive(runExtractHash),
	}
	extractHashCmd.Flags().String("hash", "", "16 hex digit hash of the file to extract (required)")
	extractHashCmd.MarkFlagRequired("hash")
	viper.BindPFlag("hash", extractHashCmd.Flags().Lookup("hash"))

	hashListCmd := &cobra.Command{
		Use:   "hash-list",
		Short: "Produces a hash list with known paths from a .arh/.ard archive",
		Long: `hash-list writes one HASH|path line per archive entry, in header order.
The path is empty for entries no wordlist resolves. By default the list is
written to hash_list.txt next to the input file.`,
		Args: cobra.NoArgs,
		RunE: withArchive(runHashList),
	}

	rootCmd.AddCommand(extractAllCmd, extractFileCmd, extractHashCmd, hashListCmd)
}

// withArchive loads config and logging, opens the archive and hands it to run
func withArchive(run func(*config.Config, *extractor.Extractor) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, closeLog, err := setup()
		if err != nil {
			return err
		}
		defer closeLog()

		e, err := openArchive(cfg)
		if err != nil {
			slog.Error("failed to open archive", "input", cfg.InputFile, "error", err)
			return err
		}
		defer e.Close()

		if err := run(cfg, e); err != nil {
			slog.Error(fmt.Sprintf("%s failed", cmd.Name()), "error", err)
			return err
		}
		return nil
	}
}

func runExtractAll(cfg *config.Config, e *extractor.Extractor) error {
	if err := e.ExtractAll(outputDir(cfg)); err != nil {
		return fmt.Errorf("some entries could not be extracted: %w", err)
	}

	slog.Info("done", "output", outputDir(cfg))
	return nil
}

func runExtractFile(cfg *config.Config, e *extractor.Extractor) error {
	outFile, err := extractor.OutputPath(outputDir(cfg), ard.NormalizePath(cfg.GamePath))
	if err != nil {
		return err
	}

	if err := e.ExtractByPath(cfg.GamePath, outFile); err != nil {
		return fmt.Errorf("failed to extract, file likely does not exist in archive: %w", err)
	}

	slog.Info("file extracted", "path", cfg.GamePath, "output", outFile)
	return nil
}

func runExtractHash(cfg *config.Config, e *extractor.Extractor) error {
	hash, err := ard.ParseHash(cfg.Hash)
	if err != nil {
		return err
	}

	outFile := filepath.Join(outputDir(cfg), ard.FormatHash(hash)+ard.UnmappedExt)
	if err := e.ExtractByHash(hash, outFile); err != nil {
		return fmt.Errorf("failed to extract, file likely does not exist in archive: %w", err)
	}

	slog.Info("file extracted", "hash", ard.FormatHash(hash), "output", outFile)
	return nil
}

func runHashList(cfg *config.Config, e *extractor.Extractor) error {
	outFile := cfg.OutputPath
	if outFile == "" {
		outFile = filepath.Join(filepath.Dir(cfg.InputFile), ard.HashListFile)
	}

	return e.WriteHashList(outFile)
}
