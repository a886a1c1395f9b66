// Package corpus discovers candidate source files and turns them into
// MinHash signatures.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/pdg-curator/pkg/logger"
	"github.com/pdg-curator/pkg/minhash"
)

var ErrEmpty = errors.New("no corpus files found")

type Item struct {
	Path      string
	Tokens    int
	Signature *minhash.Signature
	// Unreadable is set when the file could not be read; the item is then
	// scored as empty content.
	Unreadable bool
}

// Discover returns every regular file below root whose extension is one of
// extensions, sorted lexically.
func Discover(root string, extensions []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat corpus root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus root is not a directory: %s", root)
	}

	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var paths []string
	for _, ext := range extensions {
		pattern := "**/*" + normalizeExt(ext)
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob error for %q: %w", pattern, err)
		}
		for _, m := range matches {
			p := filepath.Join(root, filepath.FromSlash(m))
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func normalizeExt(ext string) string {
	if strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}

// ReadText reads at most readCap bytes (0 means no limit) and drops bytes
// that are not valid UTF-8.
func ReadText(path string, readCap int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var r io.Reader = f
	if readCap > 0 {
		r = io.LimitReader(f, readCap)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), ""), nil
}

type Builder struct {
	Perms   *minhash.Permutations
	Workers int
	ReadCap int64
}

// Build reads and signs every path on a pool of Workers goroutines. The
// returned items are index-aligned with paths. Unreadable files become empty
// items; only cancellation aborts the batch.
func (b *Builder) Build(ctx context.Context, paths []string) ([]Item, error) {
	items := make([]Item, len(paths))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(b.Workers, 1))
	for i, path := range paths {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			items[i] = b.buildItem(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func (b *Builder) buildItem(path string) Item {
	item := Item{Path: path}
	text, err := ReadText(path, b.ReadCap)
	if err != nil {
		logger.Warn("[Corpus] Unreadable file treated as empty", "path", path, "error", err)
		item.Unreadable = true
	}
	tokens := minhash.Tokenize(text)
	item.Tokens = len(tokens)
	item.Signature = minhash.FromTokens(b.Perms, tokens)
	return item
}

type Stats struct {
	Files         int
	EmptyFiles    int
	Unreadable    int
	AverageTokens float64
}

func Summarize(items []Item) Stats {
	s := Stats{Files: len(items)}
	total := 0
	for _, it := range items {
		total += it.Tokens
		if it.Tokens == 0 {
			s.EmptyFiles++
		}
		if it.Unreadable {
			s.Unreadable++
		}
	}
	if len(items) > 0 {
		s.AverageTokens = float64(total) / float64(len(items))
	}
	return s
}

func Signatures(items []Item) []*minhash.Signature {
	out := make([]*minhash.Signature, len(items))
	for i := range items {
		out[i] = items[i].Signature
	}
	return out
}

func Paths(items []Item) []string {
	out := make([]string, len(items))
	for i := range items {
		out[i] = items[i].Path
	}
	return out
}
