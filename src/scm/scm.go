// Package scm reads revision metadata from the source checkout a build ran
// against so published images can be traced back to it.
package scm

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Label keys written onto images.
const (
	LabelRevision = "org.opencontainers.image.revision"
	LabelSource   = "org.opencontainers.image.source"
	LabelTag      = "io.jvmbuildservice.scm-tag"
)

// ErrNotRepository is returned when dir is not inside a git work tree.
var ErrNotRepository = errors.New("scm: not a git repository")

// TagInfo identifies the checked out revision.
type TagInfo struct {
	RepoURL string `json:"repoUrl,omitempty" yaml:"repo_url,omitempty"`
	Tag     string `json:"tag,omitempty" yaml:"tag,omitempty"`
	Hash    string `json:"hash" yaml:"hash"`
}

// Labels returns the image labels for this revision, skipping empty values.
func (t TagInfo) Labels() map[string]string {
	labels := map[string]string{LabelRevision: t.Hash}
	if t.RepoURL != "" {
		labels[LabelSource] = t.RepoURL
	}
	if t.Tag != "" {
		labels[LabelTag] = t.Tag
	}
	return labels
}

// Describe returns the HEAD commit of the repository containing dir, the
// origin URL and, if any tag points at HEAD, the first such tag by name.
func Describe(dir string) (*TagInfo, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, ErrNotRepository
		}
		return nil, fmt.Errorf("scm: opening %s: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("scm: resolving HEAD: %w", err)
	}
	info := &TagInfo{Hash: head.Hash().String()}

	if remote, err := repo.Remote("origin"); err == nil {
		if urls := remote.Config().URLs; len(urls) > 0 {
			info.RepoURL = urls[0]
		}
	}

	tags, err := tagsAt(repo, head.Hash())
	if err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		info.Tag = tags[0]
	}
	return info, nil
}

// tagsAt lists lightweight and annotated tags whose target is hash.
func tagsAt(repo *git.Repository, hash plumbing.Hash) ([]string, error) {
	iter, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("scm: listing tags: %w", err)
	}
	defer iter.Close()

	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		target := ref.Hash()
		if obj, err := repo.TagObject(ref.Hash()); err == nil {
			target = obj.Target
		}
		if target == hash {
			names = append(names, ref.Name().Short())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scm: reading tags: %w", err)
	}
	sort.Strings(names)
	return names, nil
}
