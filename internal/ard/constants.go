package ard

// Companion file extensions. The header file (.arh) describes the entries,
// the data file (.ard) holds their bytes.
const (
	HeaderExt = ".arh"
	DataExt   = ".ard"
)

// PreambleSize is the size in bytes of the fixed header file preamble:
// magic, file count, file alignment and one reserved 32-bit field.
const PreambleSize = 16

// EntryRecordSize is the size in bytes of one header record:
// hash (u64), disk size (u32), expanded size (u32).
const EntryRecordSize = 16

// CopyBufferSize is the size of the intermediate buffer used when streaming
// entry bytes to an output sink.
const CopyBufferSize = 0x40000

// Layout of extracted entries that have no known path.
const (
	UnmappedDir = ".unmapped"
	UnmappedExt = ".bin"
)

// HashListFile is the wordlist file name whose lines are "HASH|path" pairs.
// It is also the default name for generated hash lists.
const HashListFile = "hash_list.txt"
