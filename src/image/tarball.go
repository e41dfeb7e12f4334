package image

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"time"

	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/tarball"
	"github.com/google/go-containerregistry/pkg/v1/types"
)

// epoch is one second past the Unix epoch, the timestamp reproducible image
// builders stamp on every layer entry.
var epoch = time.Unix(1, 0).UTC()

// Build writes the layer as a tar archive under scratchDir and returns it as
// an OCI layer. The archive must outlive every use of the returned layer.
func (l Layer) Build(scratchDir string) (v1.Layer, error) {
	f, err := os.CreateTemp(scratchDir, "layer-*.tar")
	if err != nil {
		return nil, fsError(err)
	}
	if err := l.writeTar(f); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, fsError(err)
	}

	layer, err := tarball.LayerFromFile(f.Name(), tarball.WithMediaType(types.OCILayer))
	if err != nil {
		return nil, fmt.Errorf("image: layer %s: %w", l.Name, err)
	}
	return layer, nil
}

func (l Layer) writeTar(w io.Writer) error {
	tw := tar.NewWriter(w)
	written := make(map[string]bool)

	for _, e := range l.Entries {
		name := strings.TrimPrefix(path.Clean(e.Destination), "/")
		if name == "" {
			continue
		}
		if err := writeParents(tw, written, name); err != nil {
			return err
		}
		if written[name] {
			continue
		}
		if err := writeEntry(tw, e, name); err != nil {
			return err
		}
		written[name] = true
	}

	if err := tw.Close(); err != nil {
		return fsError(err)
	}
	return nil
}

// writeParents emits directory headers for every ancestor of name not yet in
// the archive.
func writeParents(tw *tar.Writer, written map[string]bool, name string) error {
	dir := path.Dir(name)
	if dir == "." || written[dir] {
		return nil
	}
	if err := writeParents(tw, written, dir); err != nil {
		return err
	}
	hdr := header(dir+"/", tar.TypeDir, defaultDirMode)
	if err := tw.WriteHeader(hdr); err != nil {
		return fsError(err)
	}
	written[dir] = true
	return nil
}

func writeEntry(tw *tar.Writer, e Entry, name string) error {
	switch {
	case e.Mode.IsDir():
		return wrapFS(tw.WriteHeader(header(name+"/", tar.TypeDir, e.Mode)))

	case e.Mode&fs.ModeSymlink != 0:
		target, err := os.Readlink(e.Source)
		if err != nil {
			return fsError(err)
		}
		hdr := header(name, tar.TypeSymlink, e.Mode)
		hdr.Linkname = target
		return wrapFS(tw.WriteHeader(hdr))

	default:
		f, err := os.Open(e.Source)
		if err != nil {
			return fsError(err)
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return fsError(err)
		}
		hdr := header(name, tar.TypeReg, e.Mode)
		hdr.Size = info.Size()
		if err := tw.WriteHeader(hdr); err != nil {
			return fsError(err)
		}
		n, err := io.Copy(tw, f)
		if err != nil {
			return fsError(err)
		}
		if n != hdr.Size {
			return fmt.Errorf("%w: %s changed size while archiving", ErrFilesystem, e.Source)
		}
		return nil
	}
}

func header(name string, typ byte, mode fs.FileMode) *tar.Header {
	return &tar.Header{
		Typeflag: typ,
		Name:     name,
		Mode:     int64(mode.Perm()),
		ModTime:  epoch,
	}
}

func wrapFS(err error) error {
	if err != nil {
		return fsError(err)
	}
	return nil
}
