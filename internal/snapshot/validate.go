package snapshot

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/fsutil"
)

// maxEntrySize bounds a single archived file when reading.
const maxEntrySize = 64 << 20

// ValidateSnapshot verifies archive structure and file checksums and returns
// the index.
func ValidateSnapshot(ctx context.Context, inputPath string) (*Index, error) {
	index, _, err := loadSnapshotArchive(ctx, inputPath)
	if err != nil {
		return nil, err
	}
	return index, nil
}

func loadSnapshotArchive(ctx context.Context, inputPath string) (*Index, map[string][]byte, error) {
	archiveFiles, err := readArchiveFiles(ctx, inputPath)
	if err != nil {
		return nil, nil, err
	}

	indexData, ok := archiveFiles[indexArchivePath]
	if !ok {
		return nil, nil, invalidSnapshot(fmt.Sprintf("snapshot is missing %s", indexArchivePath), nil)
	}

	index, err := decodeIndex(indexData)
	if err != nil {
		return nil, nil, invalidSnapshot("decoding index: "+err.Error(), err)
	}

	if err := validateArchiveAgainstIndex(index, archiveFiles); err != nil {
		return nil, nil, err
	}

	return index, archiveFiles, nil
}

func readArchiveFiles(ctx context.Context, inputPath string) (map[string][]byte, error) {
	data, err := fsutil.ReadFileScoped(ctx, inputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, core.ErrNotFound("snapshot", inputPath).WithCause(err)
		}
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}

	gzReader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, invalidSnapshot("opening gzip stream: "+err.Error(), err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	files := make(map[string][]byte)

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, invalidSnapshot("reading tar entry: "+err.Error(), err)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			continue
		case tar.TypeReg:
		default:
			return nil, invalidSnapshot(fmt.Sprintf("unsupported tar entry type %d for %s", header.Typeflag, header.Name), nil)
		}

		entryPath, cleanErr := cleanArchivePath(header.Name)
		if cleanErr != nil {
			return nil, invalidSnapshot(fmt.Sprintf("invalid archive path %q: %v", header.Name, cleanErr), cleanErr)
		}
		if header.Size > maxEntrySize {
			return nil, invalidSnapshot(fmt.Sprintf("archive entry %s is too large", entryPath), nil)
		}

		data, readErr := io.ReadAll(io.LimitReader(tarReader, maxEntrySize))
		if readErr != nil {
			return nil, invalidSnapshot(fmt.Sprintf("reading tar entry %s: %v", entryPath, readErr), readErr)
		}
		files[entryPath] = data
	}

	return files, nil
}

func validateArchiveAgainstIndex(index *Index, archiveFiles map[string][]byte) error {
	for _, fileEntry := range index.Files {
		data, ok := archiveFiles[fileEntry.Path]
		if !ok {
			return invalidSnapshot(fmt.Sprintf("index entry not found in archive: %s", fileEntry.Path), nil)
		}

		if int64(len(data)) != fileEntry.Size {
			return invalidSnapshot(fmt.Sprintf("size mismatch for %s: index=%d archive=%d", fileEntry.Path, fileEntry.Size, len(data)), nil)
		}
		if checksum(data) != fileEntry.SHA256 {
			return invalidSnapshot(fmt.Sprintf("checksum mismatch for %s", fileEntry.Path), nil)
		}
	}

	if index.RunCount != len(index.Runs) {
		return invalidSnapshot(fmt.Sprintf("index lists %d run(s) but declares %d", len(index.Runs), index.RunCount), nil)
	}

	listed := make(map[string]bool, len(index.Files))
	for _, f := range index.Files {
		listed[f.Path] = true
	}
	for _, run := range index.Runs {
		for _, name := range []string{manifestEntryName, eventLogEntryName} {
			p := runArchivePath(run.RunID, name)
			if !listed[p] {
				return invalidSnapshot(fmt.Sprintf("snapshot is missing required entry: %s", p), nil)
			}
		}
	}

	return nil
}

func invalidSnapshot(message string, cause error) error {
	err := core.ErrFormat(core.CodeInvalidSnapshot, message)
	if cause != nil {
		err = err.WithCause(cause)
	}
	return err
}
