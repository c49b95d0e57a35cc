package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// MetadataName is the name of the metadata entry in the archive.
const MetadataName = "metadata.ini"

// Metadata describes packed document for the publishing side.
type Metadata struct {
	Lang     string
	MainFile string
	Type     string
	Markup   string

	Title   string
	Product string
	Version string
}

// INI returns metadata in the "metadata.ini" format.
func (m Metadata) INI() []byte {
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "[source]\nlang = %s\ntype = %s\nmainfile = %s\nmarkup = %s\n\n", m.Lang, m.Type, m.MainFile, m.Markup)
	fmt.Fprintf(buf, "[metadata]\ntitle = %s\nproduct = %s\nversion = %s\n", m.Title, m.Product, m.Version)
	return buf.Bytes()
}

// Pack writes tar.gz archive dst holding metadata.ini, the feed file and all
// files under filesDir. Names of additional files are relative to baseDir.
func Pack(dst, feedFile, baseDir, filesDir string, meta Metadata, log *zap.Logger) (err error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("unable to create archives directory: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("unable to create archive: %w", err)
	}
	zw := gzip.NewWriter(out)
	tw := tar.NewWriter(zw)
	defer func() {
		err = multierr.Combine(err, tw.Close(), zw.Close(), out.Close())
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	log.Info("Writing archive", zap.String("file", dst))

	data := meta.INI()
	if err := tw.WriteHeader(&tar.Header{
		Name:    MetadataName,
		Mode:    0644,
		Size:    int64(len(data)),
		ModTime: time.Now(),
	}); err != nil {
		return err
	}
	if _, err := tw.Write(data); err != nil {
		return err
	}

	if err := addFile(tw, feedFile, filepath.Base(feedFile)); err != nil {
		return err
	}
	if len(filesDir) == 0 {
		return nil
	}
	return filepath.WalkDir(filesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(baseDir, path)
		if err != nil {
			return err
		}
		log.Debug("Adding file to archive", zap.String("file", rel))
		return addFile(tw, path, filepath.ToSlash(rel))
	})
}

func addFile(tw *tar.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("unable to add file to archive: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(fi, "")
	if err != nil {
		return err
	}
	hdr.Name = name
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}
