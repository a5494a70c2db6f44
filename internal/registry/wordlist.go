package registry

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// maxLineSize bounds a single wordlist line.
const maxLineSize = 1 << 20

// LoadWordlists reads every regular file in dir as a wordlist. Sources are
// returned sorted by file name so that first-wins registration does not
// depend on directory listing order.
//
// A missing dir is not an error: it yields no sources.
func LoadWordlists(fsys afero.Fs, dir string, logger *slog.Logger) ([]Source, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	infos, err := afero.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("wordlist directory does not exist, no paths will be resolved", "dir", dir)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list wordlist directory %s: %w", dir, err)
	}

	// afero.ReadDir sorts by name
	files := lo.Filter(infos, func(fi os.FileInfo, _ int) bool {
		return fi.Mode().IsRegular()
	})

	sources := make([]Source, 0, len(files))
	for _, fi := range files {
		name := filepath.Join(dir, fi.Name())

		lines, err := readLines(fsys, name)
		if err != nil {
			return nil, err
		}

		sources = append(sources, Source{Name: fi.Name(), Lines: lines})
	}

	logger.Info("loaded wordlists",
		"dir", dir,
		"files", len(sources),
		"lines", lo.SumBy(sources, func(s Source) int { return len(s.Lines) }),
	)

	return sources, nil
}

// readLines reads a text file, honoring a UTF-8 or UTF-16 byte order mark.
func readLines(fsys afero.Fs, name string) ([]string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open wordlist %s: %w", name, err)
	}
	defer f.Close()

	return ReadLines(f, name)
}

// ReadLines splits a wordlist stream into lines.
func ReadLines(r io.Reader, name string) ([]string, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	scanner := bufio.NewScanner(decoded)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read wordlist %s: %w", name, err)
	}
	return lines, nil
}
