package media

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ParsePlaylist parses a local .m3u/.m3u8/.pls file into file paths.
// Relative entries are resolved against the playlist directory and remote
// entries are skipped.
func ParsePlaylist(path string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !IsPlaylistExt(ext) {
		return nil, fmt.Errorf("unsupported playlist format %s", ext)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("reading playlist: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("playlist is not valid UTF-8")
	}
	text := strings.TrimPrefix(string(data), "\uFEFF")

	baseDir := filepath.Dir(absPath)
	scanner := bufio.NewScanner(strings.NewReader(text))

	var raw []string
	if ext == ".pls" {
		raw = plsEntries(scanner)
	} else {
		raw = m3uEntries(scanner)
	}

	entries := make([]string, 0, len(raw))
	for _, entry := range raw {
		entry = strings.Trim(entry, `"`)
		if entry == "" || isRemote(entry) {
			continue
		}
		entries = append(entries, resolveEntry(entry, baseDir))
	}
	return entries, nil
}

// Expand turns command line arguments into playable file paths, expanding
// playlists in place. Missing, unsupported and directory entries found in
// playlists are counted in skipped. A bad direct argument is an error.
func Expand(args []string) (paths []string, skipped int, err error) {
	for _, arg := range args {
		ext := filepath.Ext(arg)
		if IsPlaylistExt(ext) {
			entries, err := ParsePlaylist(arg)
			if err != nil {
				return nil, 0, err
			}
			for _, entry := range entries {
				if !isPlayable(entry) {
					skipped++
					continue
				}
				paths = append(paths, entry)
			}
			continue
		}

		if !IsSupportedExt(ext) {
			return nil, 0, fmt.Errorf("unsupported format %q (supported: %s)", ext, SupportedExtsList())
		}
		if _, err := os.Stat(arg); err != nil {
			return nil, 0, err
		}
		paths = append(paths, arg)
	}
	return paths, skipped, nil
}

func isPlayable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return IsSupportedExt(filepath.Ext(path))
}

func isRemote(entry string) bool {
	lower := strings.ToLower(entry)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func m3uEntries(scanner *bufio.Scanner) []string {
	var entries []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	return entries
}

func plsEntries(scanner *bufio.Scanner) []string {
	var entries []string
	for scanner.Scan() {
		key, val, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		if isPLSFileKey(strings.TrimSpace(key)) {
			entries = append(entries, strings.TrimSpace(val))
		}
	}
	return entries
}

// isPLSFileKey matches File1, file2, ... case-insensitively.
func isPLSFileKey(key string) bool {
	if len(key) <= len("file") || !strings.EqualFold(key[:len("file")], "file") {
		return false
	}
	for _, c := range key[len("file"):] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func resolveEntry(raw, baseDir string) string {
	p := filepath.Clean(raw)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
