package extractor_test

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ossyrian/ardtool/internal/ard"
	"github.com/ossyrian/ardtool/internal/extractor"
	"github.com/ossyrian/ardtool/internal/testutil"
)

const (
	arhPath     = "/game/bf3.arh"
	ardPath     = "/game/bf3.ard"
	wordlistDir = "/Filelists"
	unmappedKey = uint64(0x0123456789ABCDEF)
)

var (
	rawData  = []byte("plain entry bytes, stored as-is")
	content  = bytes.Repeat([]byte("decompressed payload "), 200)
	orphan   = []byte("nobody knows my name")
	mapPaths = []string{
		"/bdat/raw.bin",
		"/bdat/fld.bdat",
		"/map/ma01a.wismhd",
		"/map/ma01a.wismda",
		"/bad/size.bin",
	}
)

type fixture struct {
	fs        afero.Fs
	multi     []byte
	unflagged []byte
}

// newFixture writes a header, data file and wordlist covering every
// extraction path into an in-memory filesystem
func newFixture(t *testing.T) *fixture {
	t.Helper()

	flagged := testutil.Container(1, uint32(len(content)), "fld.bdat", testutil.Zlib(t, content))
	unflagged := testutil.Container(3, uint32(len(content)), "ma01a.wismhd", testutil.Zstd(t, content))
	multi := testutil.Container(3, uint32(len(content)), "ma01a.wismda", testutil.Zstd(t, content))
	bad := testutil.Container(1, uint32(len(content)), "size.bin", testutil.Zlib(t, content))

	header, data := testutil.BuildArchive(16, []testutil.Entry{
		{Hash: ard.HashPath(mapPaths[0]), Data: rawData},
		{Hash: ard.HashPath(mapPaths[1]), Data: flagged, ExpandedSize: uint32(len(content))},
		{Hash: ard.HashPath(mapPaths[2]), Data: unflagged},
		{Hash: ard.HashPath(mapPaths[3]), Data: multi},
		{Hash: unmappedKey, Data: orphan},
		{Hash: ard.HashPath(mapPaths[4]), Data: bad, ExpandedSize: uint32(len(content)) + 1},
	})

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, arhPath, header, 0o644))
	require.NoError(t, afero.WriteFile(fsys, ardPath, data, 0o644))
	require.NoError(t, afero.WriteFile(fsys, wordlistDir+"/paths.txt",
		[]byte(strings.ToUpper(strings.Join(mapPaths, "\n"))), 0o644))

	return &fixture{fs: fsys, multi: multi, unflagged: unflagged}
}

func (f *fixture) open(t *testing.T, opts ...extractor.Option) *extractor.Extractor {
	t.Helper()

	opts = append([]extractor.Option{
		extractor.WithWordlistDir(wordlistDir),
		extractor.WithLogger(slog.New(slog.DiscardHandler)),
	}, opts...)

	e, err := extractor.Open(f.fs, arhPath, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func (f *fixture) read(t *testing.T, name string) []byte {
	t.Helper()
	b, err := afero.ReadFile(f.fs, name)
	require.NoError(t, err)
	return b
}

func TestOpen(t *testing.T) {
	f := newFixture(t)
	e := f.open(t)

	assert.Equal(t, 6, e.Index().Len())
	assert.Equal(t, len(mapPaths), e.Registry().Len())
}

func TestOpen_MissingCompanion(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.fs.Remove(ardPath))

	_, err := extractor.Open(f.fs, arhPath, extractor.WithLogger(slog.New(slog.DiscardHandler)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ard.ErrMissingCompanionFile)
}

func TestOpen_TruncatedHeader(t *testing.T) {
	f := newFixture(t)
	header := f.read(t, arhPath)
	require.NoError(t, afero.WriteFile(f.fs, arhPath, header[:len(header)-3], 0o644))

	_, err := extractor.Open(f.fs, arhPath, extractor.WithLogger(slog.New(slog.DiscardHandler)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ard.ErrFormat)
}

func TestOpen_NoWordlists(t *testing.T) {
	f := newFixture(t)
	e := f.open(t, extractor.WithWordlistDir("/missing"))

	assert.Zero(t, e.Registry().Len())
}

func TestExtractOne_RawRoundTrip(t *testing.T) {
	f := newFixture(t)
	e := f.open(t)

	entry, ok := e.Index().LookupPath(mapPaths[0])
	require.True(t, ok)

	var out bytes.Buffer
	require.NoError(t, e.ExtractOne(entry, &out, mapPaths[0]))
	assert.Equal(t, rawData, out.Bytes())
}

func TestExtractOne_Decisions(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name       string
		path       string
		autoUnwrap bool
		want       []byte
	}{
		{name: "flagged compressed", path: mapPaths[1], autoUnwrap: true, want: content},
		{name: "flagged compressed ignores auto-unwrap", path: mapPaths[1], autoUnwrap: false, want: content},
		{name: "unflagged container unwrapped", path: mapPaths[2], autoUnwrap: true, want: content},
		{name: "unflagged container kept", path: mapPaths[2], autoUnwrap: false, want: f.unflagged},
		{name: "multi-chunk container kept", path: mapPaths[3], autoUnwrap: true, want: f.multi},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := f.open(t, extractor.WithAutoUnwrap(tt.autoUnwrap))

			entry, ok := e.Index().LookupPath(tt.path)
			require.True(t, ok)

			var out bytes.Buffer
			require.NoError(t, e.ExtractOne(entry, &out, tt.path))
			assert.Equal(t, tt.want, out.Bytes())
		})
	}
}

func TestExtractByPath(t *testing.T) {
	f := newFixture(t)
	e := f.open(t)

	require.NoError(t, e.ExtractByPath(`BDAT\FLD.BDAT`, "/out/fld.bdat"))
	assert.Equal(t, content, f.read(t, "/out/fld.bdat"))
}

func TestExtractByHash(t *testing.T) {
	f := newFixture(t)
	e := f.open(t)

	require.NoError(t, e.ExtractByHash(unmappedKey, "/out/0123456789ABCDEF.bin"))
	assert.Equal(t, orphan, f.read(t, "/out/0123456789ABCDEF.bin"))
}

func TestExtract_NotFound(t *testing.T) {
	f := newFixture(t)
	e := f.open(t)

	err := e.ExtractByPath("/no/such/file.bin", "/out/file.bin")
	assert.ErrorIs(t, err, ard.ErrNotFound)

	err = e.ExtractByHash(42, "/out/42.bin")
	assert.ErrorIs(t, err, ard.ErrNotFound)

	exists, err := afero.DirExists(f.fs, "/out")
	require.NoError(t, err)
	assert.False(t, exists, "a failed lookup must not create output")
}

func TestExtract_IntegrityLeavesNoOutput(t *testing.T) {
	f := newFixture(t)
	e := f.open(t)

	err := e.ExtractByPath(mapPaths[4], "/out/size.bin")
	require.Error(t, err)
	assert.ErrorIs(t, err, ard.ErrIntegrity)

	infos, err := afero.ReadDir(f.fs, "/out")
	require.NoError(t, err)
	assert.Empty(t, infos, "neither the output nor its temp file may remain")
}

func TestExtractAll(t *testing.T) {
	f := newFixture(t)
	e := f.open(t)

	err := e.ExtractAll("/out")
	require.Error(t, err, "the corrupt entry is reported")
	assert.ErrorIs(t, err, ard.ErrIntegrity)

	assert.Equal(t, rawData, f.read(t, "/out/bdat/raw.bin"))
	assert.Equal(t, content, f.read(t, "/out/bdat/fld.bdat"))
	assert.Equal(t, content, f.read(t, "/out/map/ma01a.wismhd"))
	assert.Equal(t, f.multi, f.read(t, "/out/map/ma01a.wismda"))
	assert.Equal(t, orphan, f.read(t, filepath.Join("/out", ".unmapped", "0123456789ABCDEF.bin")))

	exists, err := afero.Exists(f.fs, "/out/bad/size.bin")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExtractAll_DryRun(t *testing.T) {
	f := newFixture(t)
	e := f.open(t, extractor.WithDryRun(true))

	err := e.ExtractAll("/out")
	assert.True(t, errors.Is(err, ard.ErrIntegrity))

	exists, err := afero.DirExists(f.fs, "/out")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBuildHashList(t *testing.T) {
	f := newFixture(t)
	e := f.open(t)

	var out bytes.Buffer
	require.NoError(t, e.BuildHashList(&out))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, e.Index().Len())

	for i, entry := range e.Index().Entries() {
		hash, path, ok := strings.Cut(lines[i], "|")
		require.True(t, ok)
		assert.Equal(t, entry.HashString(), hash)
		assert.Len(t, hash, 16)

		if entry.Hash == unmappedKey {
			assert.Empty(t, path)
			continue
		}
		assert.Equal(t, entry.Hash, ard.HashPath(path))
	}
}

func TestWriteHashList(t *testing.T) {
	f := newFixture(t)
	e := f.open(t)

	require.NoError(t, e.WriteHashList("/game/hash_list.txt"))

	got := string(f.read(t, "/game/hash_list.txt"))
	assert.Contains(t, got, "0123456789ABCDEF|\n")
	assert.Contains(t, got, ard.FormatHash(ard.HashPath(mapPaths[0]))+"|"+mapPaths[0]+"\n")
}

func TestOutputPath(t *testing.T) {
	got, err := extractor.OutputPath("out", "/chr/pc/a.wimdo")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out", "chr", "pc", "a.wimdo"), got)

	_, err = extractor.OutputPath("out", "/../../etc/passwd")
	assert.Error(t, err)

	_, err = extractor.OutputPath("out", "/")
	assert.Error(t, err)
}

func TestDataPath(t *testing.T) {
	assert.Equal(t, "/game/bf3.ard", extractor.DataPath("/game/bf3.arh"))
}

// writeArchive lays out entries and a wordlist of paths in a fresh
// in-memory filesystem. cut bytes are dropped from the end of the data file.
func writeArchive(t *testing.T, entries []testutil.Entry, paths []string, cut int) *fixture {
	t.Helper()

	header, data := testutil.BuildArchive(16, entries)

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, arhPath, header, 0o644))
	require.NoError(t, afero.WriteFile(fsys, ardPath, data[:len(data)-cut], 0o644))
	require.NoError(t, afero.WriteFile(fsys, wordlistDir+"/paths.txt",
		[]byte(strings.Join(paths, "\n")), 0o644))

	return &fixture{fs: fsys}
}

var faultPaths = []string{
	"/bdat/good.bin",
	"/bad/nomagic.bin",
	"/bad/tiny.bin",
	"/bad/lzma.bin",
	"/bdat/after.bin",
	"/bad/cut.bin",
}

// newFaultFixture holds one healthy entry before and after three corrupt
// ones, and a data file that ends 24 bytes into its last entry.
func newFaultFixture(t *testing.T) *fixture {
	t.Helper()

	odd := testutil.Container(2, uint32(len(content)), "lzma.bin", testutil.Zlib(t, content))

	return writeArchive(t, []testutil.Entry{
		{Hash: ard.HashPath(faultPaths[0]), Data: rawData},
		{Hash: ard.HashPath(faultPaths[1]), Data: bytes.Repeat([]byte{'x'}, 0x40), ExpandedSize: 0x80},
		{Hash: ard.HashPath(faultPaths[2]), Data: []byte("xbc1"), ExpandedSize: 0x10},
		{Hash: ard.HashPath(faultPaths[3]), Data: odd, ExpandedSize: uint32(len(content))},
		{Hash: ard.HashPath(faultPaths[4]), Data: orphan},
		{Hash: ard.HashPath(faultPaths[5]), Data: bytes.Repeat([]byte{'z'}, 0x40)},
	}, faultPaths, 0x28)
}

func TestExtractOne_Faults(t *testing.T) {
	f := newFaultFixture(t)
	e := f.open(t)

	tests := []struct {
		name    string
		path    string
		wantErr error
		errMsg  string
	}{
		{
			name:    "flagged without container",
			path:    faultPaths[1],
			wantErr: ard.ErrFormat,
			errMsg:  "flagged compressed but has no container header",
		},
		{
			name:    "flagged and shorter than a container header",
			path:    faultPaths[2],
			wantErr: ard.ErrFormat,
			errMsg:  "flagged compressed but has no container header",
		},
		{
			name:    "unknown compression type",
			path:    faultPaths[3],
			wantErr: ard.ErrUnsupportedCompression,
		},
		{
			name:    "data file ends inside entry",
			path:    faultPaths[5],
			wantErr: ard.ErrFormat,
			errMsg:  "data file ends inside entry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, ok := e.Index().LookupPath(tt.path)
			require.True(t, ok)

			var out bytes.Buffer
			err := e.ExtractOne(entry, &out, tt.path)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.errMsg != "" {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestExtractOne_UnsupportedCompressionType(t *testing.T) {
	f := newFaultFixture(t)
	e := f.open(t)

	entry, ok := e.Index().LookupPath(faultPaths[3])
	require.True(t, ok)

	var out bytes.Buffer
	err := e.ExtractOne(entry, &out, faultPaths[3])

	var unsupported *ard.UnsupportedCompressionError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, uint32(2), unsupported.Type)
	assert.Zero(t, out.Len())
}

func TestExtractAll_SkipsFaultyEntries(t *testing.T) {
	f := newFaultFixture(t)
	e := f.open(t)

	err := e.ExtractAll("/out")
	require.Error(t, err)
	assert.ErrorIs(t, err, ard.ErrFormat)
	assert.ErrorIs(t, err, ard.ErrUnsupportedCompression)
	assert.NotErrorIs(t, err, ard.ErrIntegrity)

	assert.Equal(t, rawData, f.read(t, "/out/bdat/good.bin"))
	assert.Equal(t, orphan, f.read(t, "/out/bdat/after.bin"))

	infos, err := afero.ReadDir(f.fs, "/out/bad")
	require.NoError(t, err)
	assert.Empty(t, infos, "no faulty entry may leave output or temp files")
}

func TestExtractAll_DuplicateHashes(t *testing.T) {
	first := []byte("first declaration")
	second := []byte("second declaration")
	path := "/dup/a.bin"

	f := writeArchive(t, []testutil.Entry{
		{Hash: ard.HashPath(path), Data: first},
		{Hash: unmappedKey, Data: orphan},
		{Hash: ard.HashPath(path), Data: second},
	}, []string{path}, 0)
	e := f.open(t)

	require.NoError(t, e.ExtractAll("/out"))

	assert.Equal(t, first, f.read(t, "/out/dup/a.bin"))
	assert.Equal(t, second, f.read(t, "/out/dup/a_2.bin"))
	assert.Equal(t, orphan, f.read(t, filepath.Join("/out", ".unmapped", "0123456789ABCDEF.bin")))
}
