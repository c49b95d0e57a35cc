package feed

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/beevik/etree"
	"github.com/h2non/filetype"
	"go.uber.org/zap"

	"dbfeed/utils/xmltree"
)

// header size filetype needs to recognize any supported type
const sniffLen = 262

// formatTypes lists artifact kinds verified before they are published.
var formatTypes = map[string]string{
	"pdf":  "pdf",
	"epub": "epub",
}

// AddFormats adds element named after every additional format holding
// artifact file name and copies artifacts to the feed additional files
// directory.
func (b *Builder) AddFormats(doc *etree.Document, formats []string) error {
	root := doc.Root()
	if root == nil {
		return fmt.Errorf("feed document is empty")
	}
	if len(formats) == 0 {
		return nil
	}

	dir, err := b.ctx.Book.AdditionalFilesDir(b.ctx.Lang, b.ctx.DocID)
	if err != nil {
		return err
	}
	for _, format := range formats {
		src, err := b.ctx.Book.Artifact(b.ctx.Lang, format)
		if err != nil {
			return err
		}
		if err := verifyArtifact(src, format); err != nil {
			return err
		}
		name := filepath.Base(src)
		xmltree.Add(root, format, name, rootLevel)
		if err := copyFile(src, filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("unable to copy %s artifact: %w", format, err)
		}
		b.log.Debug("Additional format added", zap.String("format", format), zap.String("file", name))
	}
	return nil
}

// verifyArtifact checks artifact content against its format.
func verifyArtifact(path, format string) error {
	kind, ok := formatTypes[format]
	if !ok {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return err
	}
	if !filetype.Is(head[:n], kind) {
		return fmt.Errorf("artifact %s is not a valid %s file", path, format)
	}
	return nil
}

// copyFile copies file content keeping modification time.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err == nil {
			err = os.Chtimes(dst, info.ModTime(), info.ModTime())
		}
	}()
	_, err = io.Copy(out, in)
	return err
}
