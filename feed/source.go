package feed

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"dbfeed/utils/xmltree"
)

// SourceInfo identifies document sources in version control.
type SourceInfo struct {
	RepoURL string
	Commit  string
}

// GitSource reads origin url and head commit of the git checkout holding
// dir. Empty info is returned when dir is not in a checkout or git is not
// available.
func GitSource(ctx context.Context, dir string, log *zap.Logger) SourceInfo {
	var info SourceInfo
	commit, err := git(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		log.Debug("Sources are not in git checkout", zap.String("dir", dir), zap.Error(err))
		return info
	}
	info.Commit = commit
	if info.RepoURL, err = git(ctx, dir, "remote", "get-url", "origin"); err != nil {
		log.Debug("Git checkout has no origin", zap.String("dir", dir), zap.Error(err))
	}
	return info
}

func git(ctx context.Context, dir string, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}

// AddSourceInfo adds "repourl" and "commit" elements before the first
// page, or to the end of the feed when there are no pages.
func AddSourceInfo(doc *etree.Document, info SourceInfo) {
	root := doc.Root()
	if root == nil {
		return
	}
	index := -1
	for i, c := range root.ChildElements() {
		if c.Tag == "page" {
			index = i
			break
		}
	}
	if index < 0 {
		xmltree.Add(root, "commit", info.Commit, rootLevel)
		xmltree.Add(root, "repourl", info.RepoURL, rootLevel)
		return
	}
	xmltree.AddAt(root, index, "repourl", info.RepoURL, rootLevel)
	xmltree.AddAt(root, index+1, "commit", info.Commit, rootLevel)
}
