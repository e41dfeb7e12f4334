package image

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Default modes for whole-directory layers, where host permissions are not kept.
const (
	defaultFileMode fs.FileMode = 0o644
	defaultDirMode  fs.FileMode = 0o755
)

// transientMarkers are files a Maven style repository writes for its own
// bookkeeping; they differ between otherwise identical builds.
var transientMarkers = []string{"_remote.repositories"}

var transientSuffixes = []string{".lastUpdated"}

// Entry places one host file, directory or symlink into a layer.
type Entry struct {
	Source      string      // host path
	Destination string      // absolute, slash separated path in the image
	Mode        fs.FileMode // type bits plus permission bits
}

// Layer is an ordered list of entries. Entries are kept sorted by
// Destination so identical inputs produce identical layer blobs.
type Layer struct {
	Name    string
	Entries []Entry
}

func newLayer(name string, entries []Entry) Layer {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Destination < entries[j].Destination })
	return Layer{Name: name, Entries: entries}
}

// DirectoryLayer adds dir recursively at dest/<base name of dir>, with
// default 0644/0755 permissions.
func DirectoryLayer(name, dir, dest string) (Layer, error) {
	if err := checkDestination(dest); err != nil {
		return Layer{}, err
	}
	root := path.Join(dest, filepath.Base(filepath.Clean(dir)))
	entries, err := walkEntries(dir, root, false)
	if err != nil {
		return Layer{}, err
	}
	return newLayer(name, entries), nil
}

// FlatListingLayer adds every top-level entry of dir recursively under
// dest/<name>, preserving POSIX permission bits.
func FlatListingLayer(name, dir, dest string) (Layer, error) {
	if err := checkDestination(dest); err != nil {
		return Layer{}, err
	}
	children, err := os.ReadDir(dir)
	if err != nil {
		return Layer{}, fsError(err)
	}

	var entries []Entry
	for _, child := range children {
		sub, err := walkEntries(filepath.Join(dir, child.Name()), path.Join(dest, child.Name()), true)
		if err != nil {
			return Layer{}, err
		}
		entries = append(entries, sub...)
	}
	return newLayer(name, entries), nil
}

// HermeticLayer adds the regular files of repository that the build did not
// already produce: a file is skipped when the same relative path exists
// under artifacts, or when it is a transient marker. Path equality stands in
// for content equality since both trees are laid out the same way.
// Existence checks run on up to workers goroutines.
func HermeticLayer(ctx context.Context, name, repository, artifacts, dest string, workers int) (Layer, error) {
	if err := checkDestination(dest); err != nil {
		return Layer{}, err
	}
	if repository == "" || artifacts == "" {
		return Layer{}, fmt.Errorf("%w: repository and artifacts paths are required", ErrInvalidRequest)
	}

	type candidate struct {
		rel  string
		mode fs.FileMode
	}
	var candidates []candidate
	err := filepath.WalkDir(repository, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || isTransient(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(repository, p)
		if err != nil {
			return err
		}
		candidates = append(candidates, candidate{rel: rel, mode: info.Mode()})
		return nil
	})
	if err != nil {
		return Layer{}, fsError(err)
	}

	if workers < 1 {
		workers = runtime.NumCPU()
	}
	produced := make([]bool, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, err := os.Lstat(filepath.Join(artifacts, c.rel))
			switch {
			case err == nil:
				produced[i] = true
			case !errors.Is(err, fs.ErrNotExist):
				return fsError(err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Layer{}, err
	}

	entries := make([]Entry, 0, len(candidates))
	for i, c := range candidates {
		if produced[i] {
			continue
		}
		entries = append(entries, Entry{
			Source:      filepath.Join(repository, c.rel),
			Destination: path.Join(dest, filepath.ToSlash(c.rel)),
			Mode:        c.mode,
		})
	}
	return newLayer(name, entries), nil
}

// walkEntries lists src and everything below it, mapped onto dest.
func walkEntries(src, dest string, keepPerms bool) ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := os.Lstat(p)
		if err != nil {
			return err
		}
		mode := info.Mode()
		switch {
		case mode.IsDir():
			if !keepPerms {
				mode = fs.ModeDir | defaultDirMode
			}
		case mode.IsRegular():
			if !keepPerms {
				mode = defaultFileMode
			}
		case mode&fs.ModeSymlink != 0:
		default:
			return nil
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		entries = append(entries, Entry{
			Source:      p,
			Destination: path.Join(dest, filepath.ToSlash(rel)),
			Mode:        mode,
		})
		return nil
	})
	if err != nil {
		return nil, fsError(err)
	}
	return entries, nil
}

func isTransient(name string) bool {
	for _, m := range transientMarkers {
		if name == m {
			return true
		}
	}
	for _, s := range transientSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

func checkDestination(dest string) error {
	if !path.IsAbs(dest) {
		return fmt.Errorf("%w: image path %q is not absolute", ErrInvalidRequest, dest)
	}
	return nil
}
