package backup

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nvandessel/geomood/internal/models"
)

// Format version constants.
const (
	FormatV1 = 1
	FormatV2 = 2
)

// MaxDecompressedSize is the maximum allowed size of decompressed backup data (200MB).
const MaxDecompressedSize = 200 * 1024 * 1024

// maxHeaderLine bounds the V2 header line.
const maxHeaderLine = 1024 * 1024

// BackupHeader is the plain-text first line of a V2 backup file.
type BackupHeader struct {
	Version    int               `json:"version"`
	CreatedAt  time.Time         `json:"created_at"`
	Checksum   string            `json:"checksum"`
	EntryCount int               `json:"entry_count"`
	GemCount   int               `json:"gem_count"`
	Compressed bool              `json:"compressed"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// DetectFormat reads the first line of a file to determine V1 vs V2.
// V2 files start with a header line carrying "version":2. V1 files are a
// plain JSON array of entries.
func DetectFormat(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxHeaderLine)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return 0, fmt.Errorf("reading first line: %w", err)
		}
		return 0, errors.New("file is empty")
	}

	firstLine := strings.TrimSpace(scanner.Text())
	if firstLine == "" {
		return 0, errors.New("first line is empty")
	}

	if firstLine[0] == '[' {
		return FormatV1, nil
	}

	var header BackupHeader
	if err := json.Unmarshal([]byte(firstLine), &header); err == nil && header.Version == FormatV2 {
		return FormatV2, nil
	}

	return 0, errors.New("unrecognized backup format")
}

// WriteV2 writes a BackupFormat as a V2 file: header line + gzip-compressed payload.
func WriteV2(path string, b *BackupFormat) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	var compressed bytes.Buffer
	gzw, err := gzip.NewWriterLevel(&compressed, gzip.DefaultCompression)
	if err != nil {
		return fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := gzw.Write(payload); err != nil {
		return fmt.Errorf("compressing payload: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("closing gzip writer: %w", err)
	}

	header := BackupHeader{
		Version:    FormatV2,
		CreatedAt:  b.CreatedAt,
		Checksum:   checksum(compressed.Bytes()),
		EntryCount: len(b.Entries),
		GemCount:   countGems(b.Entries),
		Compressed: true,
	}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshaling header: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	w.Write(headerBytes)
	w.WriteByte('\n')
	w.Write(compressed.Bytes())
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing backup: %w", err)
	}
	return nil
}

// ReadV2 reads a V2 backup file, verifies the checksum, and decompresses the payload.
func ReadV2(path string) (*BackupFormat, error) {
	header, compressedData, err := readV2(path, true)
	if err != nil {
		return nil, err
	}
	if err := verify(header, compressedData); err != nil {
		return nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(compressedData))
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	decompressed, err := io.ReadAll(io.LimitReader(gzr, MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing payload: %w", err)
	}
	if int64(len(decompressed)) > MaxDecompressedSize {
		return nil, fmt.Errorf("decompressed payload exceeds maximum size of %d bytes", MaxDecompressedSize)
	}

	var backup BackupFormat
	if err := json.Unmarshal(decompressed, &backup); err != nil {
		return nil, fmt.Errorf("parsing backup data: %w", err)
	}
	backup.Version = FormatV2

	return &backup, nil
}

// ReadV2Header reads only the header line from a V2 backup file without decompressing.
func ReadV2Header(path string) (*BackupHeader, error) {
	header, _, err := readV2(path, false)
	return header, err
}

// VerifyChecksum checks the integrity of a V2 backup file without decompressing it.
func VerifyChecksum(path string) error {
	header, compressedData, err := readV2(path, true)
	if err != nil {
		return err
	}
	return verify(header, compressedData)
}

// readV2 parses the header line and, if withPayload, returns the raw
// compressed payload that follows it.
func readV2(path string, withPayload bool) (*BackupHeader, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	headerLine, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("reading header line: %w", err)
	}

	var header BackupHeader
	if err := json.Unmarshal(bytes.TrimSpace(headerLine), &header); err != nil {
		return nil, nil, fmt.Errorf("parsing header: %w", err)
	}
	if header.Version != FormatV2 {
		return nil, nil, fmt.Errorf("expected V2 format, got version %d", header.Version)
	}

	if !withPayload {
		return &header, nil, nil
	}

	compressedData, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("reading compressed payload: %w", err)
	}
	return &header, compressedData, nil
}

func verify(header *BackupHeader, compressedData []byte) error {
	if actual := checksum(compressedData); actual != header.Checksum {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", header.Checksum, actual)
	}
	return nil
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}

func countGems(entries []models.Entry) int {
	n := 0
	for _, e := range entries {
		if e.HasGem {
			n++
		}
	}
	return n
}

// isBackupFile reports whether name was produced by GenerateBackupPath or
// GenerateBackupPathV1.
func isBackupFile(name string) bool {
	return strings.HasPrefix(name, FilePrefix) &&
		(strings.HasSuffix(name, ".json.gz") || strings.HasSuffix(name, ".json"))
}
