package snapshot

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
)

func normalizeImportOptions(opts *ImportOptions) error {
	if opts == nil {
		return fmt.Errorf("options are required")
	}
	if strings.TrimSpace(opts.InputPath) == "" {
		return core.ErrUsage("input path is required")
	}
	if opts.ConflictPolicy == "" {
		opts.ConflictPolicy = ConflictSkip
	}
	if opts.ConflictPolicy != ConflictSkip && opts.ConflictPolicy != ConflictFail {
		return core.ErrUsage(fmt.Sprintf("invalid conflict policy: %s", opts.ConflictPolicy))
	}
	return nil
}

func normalizeExportOptions(opts *ExportOptions) error {
	if opts == nil {
		return fmt.Errorf("options are required")
	}
	if strings.TrimSpace(opts.OutputPath) == "" {
		return core.ErrUsage("output path is required")
	}
	return nil
}

func runArchivePath(runID, name string) string {
	return path.Join(runsArchiveRoot, runID, name)
}

// cleanArchivePath rejects absolute and escaping entry names.
func cleanArchivePath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("empty archive path")
	}
	p = strings.ReplaceAll(p, `\`, "/")
	if path.IsAbs(p) {
		return "", fmt.Errorf("absolute archive path is not allowed: %s", p)
	}
	clean := path.Clean(strings.TrimPrefix(p, "./"))
	if clean == "." || clean == "" {
		return "", fmt.Errorf("invalid archive path: %s", p)
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("path traversal detected: %s", p)
	}
	return clean, nil
}

func addBytesToArchive(tw *tar.Writer, index *Index, archivePath string, data []byte) error {
	cleanPath, err := cleanArchivePath(archivePath)
	if err != nil {
		return fmt.Errorf("invalid archive path: %w", err)
	}

	if err := writeTarEntry(tw, cleanPath, data); err != nil {
		return fmt.Errorf("writing archive entry %s: %w", cleanPath, err)
	}

	index.Files = append(index.Files, FileEntry{
		Path:   cleanPath,
		SHA256: checksum(data),
		Size:   int64(len(data)),
	})
	return nil
}

func writeTarEntry(tw *tar.Writer, name string, data []byte) error {
	header := &tar.Header{
		Name:     name,
		Mode:     0o600,
		Size:     int64(len(data)),
		ModTime:  time.Now(),
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err := tw.Write(data)
	return err
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func sortFileEntries(entries []FileEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
}

func encodeIndex(index *Index) ([]byte, error) {
	sortFileEntries(index.Files)
	return json.MarshalIndent(index, "", "  ")
}

func decodeIndex(data []byte) (*Index, error) {
	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, err
	}
	if index.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported snapshot version: %d", index.Version)
	}
	return &index, nil
}
