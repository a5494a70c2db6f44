// Package registry recovers game paths for archive hashes from wordlists.
//
// Wordlists are lossy: they come from other releases, patch layouts and
// hand-collected tables. Every candidate line is normalized and pushed
// through a fixed pipeline of rewrites, and every variant whose hash is
// present in the archive is registered. The first path registered for a
// hash wins.
package registry

import (
	"log/slog"
	"strings"

	"github.com/ossyrian/ardtool/internal/ard"
)

// HashSet is the view of the archive index the registry probes against.
type HashSet interface {
	Has(hash uint64) bool
}

// Source is one wordlist: a name and its candidate lines in file order.
type Source struct {
	Name  string
	Lines []string
}

// patchPrefixes are update layers whose paths are otherwise identical to
// the base game's. Both are exactly 8 characters long.
var patchPrefixes = []string{"/patch0/", "/patch1/"}

// prefixRewrite maps a flattened character directory to its nested form.
type prefixRewrite struct {
	from, to string
}

// prefixRewrites is scanned in order and at most one rewrite applies.
var prefixRewrites = []prefixRewrite{
	{"/chr_dl/", "/chr/dl/"},
	{"/chr_en/", "/chr/en/"},
	{"/chr_fc/", "/chr/fc/"},
	{"/chr_fctex/", "/chr/fctex/"},
	{"/chr_fceye/", "/chr/fceye/"},
	{"/chr_mb/", "/chr/mp/"},
	{"/chr_np/", "/chr/np/"},
	{"/chr_oj/", "/chr/oj/"},
	{"/chr_pac/", "/chr/pac/"},
	{"/chr_pc/", "/chr/pc/"},
	{"/chr_pt/", "/chr/pt/"},
	{"/chr_un/", "/chr/un/"},
	{"/chr_we/", "/chr/we/"},
	{"/chr_wd/", "/chr/wd/"},
	{"/chr_wdb/", "/chr/wdb/"},
	{"/chr_ws/", "/chr/ws/"},
}

// Locales are the region codes substituted into candidate paths.
var Locales = []string{"us", "jp", "cn", "fr", "sp", "ge", "tw", "kr"}

// Registry maps archive hashes to recovered game paths.
// It is immutable once built and safe for concurrent reads.
type Registry struct {
	paths map[uint64]string
	stats Stats
}

// Stats counts registry build work.
type Stats struct {
	Candidates int // lines fed to the pipeline
	Probes     int // hashes computed
	Hits       int // probes whose hash is in the archive
	Collisions int // hits for a hash that already had a different path
}

// Build runs every line of every source through the rewrite pipeline, in
// the order given. A source named hash_list.txt also contributes the path
// field of each of its "HASH|path" lines ahead of its general pass.
func Build(index HashSet, sources []Source, logger *slog.Logger) *Registry {
	return build(index, sources, logger, ard.HashNormalized)
}

func build(index HashSet, sources []Source, logger *slog.Logger, hash func(string) uint64) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	b := &builder{
		index:  index,
		hash:   hash,
		logger: logger,
		reg:    &Registry{paths: make(map[uint64]string)},
	}

	for _, src := range sources {
		before := len(b.reg.paths)

		if src.Name == ard.HashListFile {
			for _, line := range src.Lines {
				fields := strings.Split(line, "|")
				if len(fields) >= 2 {
					b.candidate(fields[1])
				}
			}
		}

		for _, line := range src.Lines {
			b.candidate(line)
		}

		logger.Debug("processed wordlist",
			"source", src.Name,
			"lines", len(src.Lines),
			"new_paths", len(b.reg.paths)-before,
		)
	}

	return b.reg
}

// Lookup returns the recovered path for hash.
func (r *Registry) Lookup(hash uint64) (string, bool) {
	p, ok := r.paths[hash]
	return p, ok
}

// Len returns the number of hashes with a known path.
func (r *Registry) Len() int {
	return len(r.paths)
}

// Stats returns the counters collected while building.
func (r *Registry) Stats() Stats {
	return r.stats
}

// Coverage returns the percentage of total hashes that have a known path.
func (r *Registry) Coverage(total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(len(r.paths)) / float64(total) * 100
}

type builder struct {
	index  HashSet
	hash   func(string) uint64
	logger *slog.Logger
	reg    *Registry
}

// candidate runs one wordlist line through the pipeline.
func (b *builder) candidate(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	b.reg.stats.Candidates++

	p := ard.NormalizePath(line)

	for _, prefix := range patchPrefixes {
		if strings.HasPrefix(p, prefix) {
			p = ard.NormalizePath(p[len(prefix):])
			break
		}
	}

	for _, rw := range prefixRewrites {
		if strings.HasPrefix(p, rw.from) {
			p = rw.to + p[len(rw.from):]
			break
		}
	}

	b.probe(p)

	// .wi files share their logical path with the .ca file next to them
	if strings.Contains(p, ".ca") {
		b.probe(strings.Replace(p, ".ca", ".wi", 1))
	}

	// some tables omit the numeric "/00xx" directory
	if strings.HasPrefix(p, "/00") && len(p) > 5 {
		b.probe(ard.NormalizePath(p[5:]))
	}

	for _, code := range Locales {
		if !strings.Contains(p, code) {
			continue
		}
		for _, target := range Locales {
			b.probe(strings.Replace(p, code, target, 1))
		}
	}
}

// probe registers p if its hash is in the archive and has no path yet.
func (b *builder) probe(p string) {
	b.reg.stats.Probes++

	h := b.hash(p)
	if !b.index.Has(h) {
		return
	}
	b.reg.stats.Hits++

	existing, ok := b.reg.paths[h]
	if !ok {
		b.reg.paths[h] = p
		return
	}
	if existing != p {
		b.reg.stats.Collisions++
		b.logger.Debug("hash already mapped, keeping first path",
			"hash", ard.FormatHash(h),
			"kept", existing,
			"discarded", p,
		)
	}
}
