package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// defaultKeep is how many backups survive when no limit is configured.
const defaultKeep = 10

// BackupInfo describes one backup file in a backup directory.
type BackupInfo struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
	Version   int       `json:"version"`
	Entries   int       `json:"entry_count"`
	Gems      int       `json:"gem_count,omitempty"`
}

// RetentionPolicy picks the backups to keep from a newest-first list.
type RetentionPolicy interface {
	Apply(backups []BackupInfo) (keep []BackupInfo)
}

// CountPolicy keeps the MaxCount newest backups.
type CountPolicy struct {
	MaxCount int
}

func (p *CountPolicy) Apply(backups []BackupInfo) []BackupInfo {
	return backups[:min(len(backups), max(p.MaxCount, 0))]
}

// AgePolicy keeps backups created within MaxAge. Now defaults to time.Now.
type AgePolicy struct {
	MaxAge time.Duration
	Now    func() time.Time
}

func (p *AgePolicy) Apply(backups []BackupInfo) []BackupInfo {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	cutoff := now().Add(-p.MaxAge)

	var keep []BackupInfo
	for _, b := range backups {
		if b.CreatedAt.After(cutoff) {
			keep = append(keep, b)
		}
	}
	return keep
}

// SizePolicy keeps the newest backups that fit in MaxTotalBytes. The
// newest backup is always kept, even when it alone is over the limit.
type SizePolicy struct {
	MaxTotalBytes int64
}

func (p *SizePolicy) Apply(backups []BackupInfo) []BackupInfo {
	var total int64
	for i, b := range backups {
		total += b.Size
		if total > p.MaxTotalBytes && i > 0 {
			return backups[:i]
		}
	}
	return backups
}

// CompositePolicy keeps a backup when any of its policies keeps it.
type CompositePolicy struct {
	Policies []RetentionPolicy
}

func (p *CompositePolicy) Apply(backups []BackupInfo) []BackupInfo {
	kept := make(map[string]struct{}, len(backups))
	for _, policy := range p.Policies {
		for _, b := range policy.Apply(backups) {
			kept[b.Path] = struct{}{}
		}
	}

	var out []BackupInfo
	for _, b := range backups {
		if _, ok := kept[b.Path]; ok {
			out = append(out, b)
		}
	}
	return out
}

// PolicyFromLimits builds the policy for the backup.retention config
// section. Zero or empty limits are skipped. With none set the
// defaultKeep newest backups are kept.
func PolicyFromLimits(maxCount int, maxAge, maxTotalSize string) (RetentionPolicy, error) {
	var policies []RetentionPolicy

	if maxCount > 0 {
		policies = append(policies, &CountPolicy{MaxCount: maxCount})
	}
	if maxAge != "" {
		d, err := ParseDuration(maxAge)
		if err != nil {
			return nil, fmt.Errorf("max_age: %w", err)
		}
		policies = append(policies, &AgePolicy{MaxAge: d})
	}
	if maxTotalSize != "" {
		n, err := ParseSize(maxTotalSize)
		if err != nil {
			return nil, fmt.Errorf("max_total_size: %w", err)
		}
		policies = append(policies, &SizePolicy{MaxTotalBytes: n})
	}

	switch len(policies) {
	case 0:
		return &CountPolicy{MaxCount: defaultKeep}, nil
	case 1:
		return policies[0], nil
	}
	return &CompositePolicy{Policies: policies}, nil
}

// ListBackups returns the geomood backups in dir, newest first. A missing
// dir holds no backups. Files that cannot be read are listed with version 0.
func ListBackups(dir string) ([]BackupInfo, error) {
	dirEntries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var backups []BackupInfo
	for _, de := range dirEntries {
		if de.IsDir() || !isBackupFile(de.Name()) {
			continue
		}
		fi, err := de.Info()
		if err != nil {
			continue
		}
		backups = append(backups, describe(filepath.Join(dir, de.Name()), fi))
	}

	// Names embed the creation time, so name order is age order.
	sort.Slice(backups, func(i, j int) bool {
		return filepath.Base(backups[i].Path) > filepath.Base(backups[j].Path)
	})
	return backups, nil
}

// describe reads what it can about one backup file.
func describe(path string, fi os.FileInfo) BackupInfo {
	b := BackupInfo{Path: path, Size: fi.Size(), CreatedAt: fi.ModTime()}

	version, err := DetectFormat(path)
	if err != nil {
		return b
	}
	b.Version = version

	switch version {
	case FormatV2:
		if h, err := ReadV2Header(path); err == nil {
			b.CreatedAt = h.CreatedAt
			b.Entries = h.EntryCount
			b.Gems = h.GemCount
		}
	case FormatV1:
		if entries, err := ReadV1(path); err == nil {
			b.Entries = len(entries)
			b.Gems = countGems(entries)
		}
	}
	return b
}

// ApplyRetention removes the backups in dir that policy does not keep and
// returns their paths.
func ApplyRetention(dir string, policy RetentionPolicy) (deleted []string, err error) {
	backups, err := ListBackups(dir)
	if err != nil {
		return nil, err
	}

	keep := make(map[string]struct{})
	for _, b := range policy.Apply(backups) {
		keep[b.Path] = struct{}{}
	}

	for _, b := range backups {
		if _, ok := keep[b.Path]; ok {
			continue
		}
		if err := os.Remove(b.Path); err != nil {
			return deleted, fmt.Errorf("removing %s: %w", filepath.Base(b.Path), err)
		}
		deleted = append(deleted, b.Path)
	}
	return deleted, nil
}

// dayUnits extends time.ParseDuration with whole days and weeks.
var dayUnits = map[byte]time.Duration{
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// ParseDuration parses a retention age: any time.ParseDuration string, or
// a whole number of days ("30d") or weeks ("2w").
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	unit, ok := dayUnits[s[len(s)-1]]
	if !ok {
		return 0, fmt.Errorf("invalid duration %q (use Go units, d or w)", s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(n) * unit, nil
}

// sizeUnits is ordered so two-letter suffixes match before "B".
var sizeUnits = []struct {
	suffix string
	bytes  int64
}{
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// ParseSize parses a retention size such as "500KB", "100MB" or "1GB".
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}
	for _, u := range sizeUnits {
		num, found := strings.CutSuffix(s, u.suffix)
		if !found {
			continue
		}
		n, err := strconv.ParseInt(num, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid size %q", s)
		}
		return n * u.bytes, nil
	}
	return 0, fmt.Errorf("invalid size %q (use B, KB, MB or GB)", s)
}
