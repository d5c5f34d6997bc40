package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// FileStat counts the lines a commit adds and removes in one file
type FileStat struct {
	Path    string
	Added   int
	Deleted int
}

// CommitFileStats returns per-file line counts for the changes a commit introduces
func CommitFileStats(ctx context.Context, r *CommandRunner, sha string) ([]FileStat, error) {
	patch, err := r.RunRaw(ctx, "show", "--format=", "--no-color", "--no-ext-diff", "--no-renames", sha)
	if err != nil {
		return nil, fmt.Errorf("failed to show commit %s: %w", sha, err)
	}
	return ParsePatchStats(patch)
}

// ParsePatchStats parses a unified multi-file diff into per-file line counts
func ParsePatchStats(patch string) ([]FileStat, error) {
	if strings.TrimSpace(patch) == "" {
		return []FileStat{}, nil
	}

	files, err := godiff.ParseMultiFileDiff([]byte(patch))
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	stats := make([]FileStat, 0, len(files))
	for _, f := range files {
		stat := FileStat{Path: filePath(f)}
		for _, h := range f.Hunks {
			added, deleted := countHunkLines(h.Body)
			stat.Added += added
			stat.Deleted += deleted
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

// filePath prefers the new name and falls back to the old one for deletions
func filePath(f *godiff.FileDiff) string {
	name := f.NewName
	if name == "" || name == "/dev/null" {
		name = f.OrigName
	}
	name = strings.TrimPrefix(name, "b/")
	return strings.TrimPrefix(name, "a/")
}

func countHunkLines(body []byte) (int, int) {
	var added, deleted int
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		switch line[0] {
		case '+':
			added++
		case '-':
			deleted++
		}
	}
	return added, deleted
}
