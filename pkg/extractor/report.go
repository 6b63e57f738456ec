package extractor

import (
	"github.com/opencontainers/go-digest"
)

// FileInfo summarizes the outcome of one archive entry
type FileInfo struct {
	FileName  string
	Size      uint64
	IsSuccess bool
	Err       error
}

// DecompressedData holds an entry extracted in memory
type DecompressedData struct {
	FileInfo
	Value []byte
}

// Digest returns the sha256 digest of the extracted content.
func (d DecompressedData) Digest() digest.Digest {
	return digest.FromBytes(d.Value)
}

// Failed returns the number of unsuccessful records.
func Failed(infos []FileInfo) int {
	var n int
	for _, fi := range infos {
		if !fi.IsSuccess {
			n++
		}
	}
	return n
}

func succeeded(name string, size int64) FileInfo {
	return FileInfo{
		FileName:  name,
		Size:      clampSize(size),
		IsSuccess: true,
	}
}

func failed(name string, size int64, err error) FileInfo {
	return FileInfo{
		FileName: name,
		Size:     clampSize(size),
		Err:      err,
	}
}

func clampSize(size int64) uint64 {
	if size < 0 {
		return 0
	}
	return uint64(size)
}
