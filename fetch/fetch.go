// Package fetch materializes website source trees from remote
// repositories for the optimization pipeline.
//
// It is a collaborator, not part of the pipeline: its output is the same
// []optimize.SourceFile an unpacked upload produces, and every failure is
// surfaced as optimize.ErrSourceFetchFailed so callers can tell fetch
// problems from optimization problems.
//
// Two mechanisms are provided:
//   - CloneTree: a shallow go-git clone of any git URL into an in-memory
//     filesystem
//   - GitHubArchive: a GitHub API zipball download for owner/repo
//     references
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/google/go-github/v67/github"

	"github.com/Marwanelaks/optimize"
)

// CloneOptions controls how a repository is cloned.
type CloneOptions struct {
	// Reference is the full reference name to check out, such as
	// "refs/heads/main". Empty means the remote's default branch.
	Reference string

	// Depth limits clone history. Defaults to 1: the pipeline only needs
	// the tree, never the history.
	Depth int

	// Read bounds the materialized tree the same way archive ingestion is
	// bounded. The zero value means optimize.DefaultReadOptions.
	Read optimize.ReadOptions
}

// CloneTree clones a git repository into memory and returns its worktree
// as SourceFiles, in deterministic lexical order. The .git directory is
// never part of the result.
func CloneTree(ctx context.Context, url string, opts CloneOptions) ([]optimize.SourceFile, error) {
	if url == "" {
		return nil, fetchErr(url, fmt.Errorf("empty repository URL"))
	}

	depth := opts.Depth
	if depth <= 0 {
		depth = 1
	}

	cloneOpts := &gogit.CloneOptions{
		URL:          url,
		Depth:        depth,
		SingleBranch: true,
	}
	if opts.Reference != "" {
		cloneOpts.ReferenceName = plumbing.ReferenceName(opts.Reference)
	}

	worktree := memfs.New()
	if _, err := gogit.CloneContext(ctx, memory.NewStorage(), worktree, cloneOpts); err != nil {
		return nil, fetchErr(url, err)
	}

	files, err := treeFiles(worktree, readOptions(opts.Read))
	if err != nil {
		return nil, fetchErr(url, err)
	}
	return files, nil
}

// GitHubArchive downloads a repository snapshot through the GitHub API
// zipball endpoint and unpacks it with the pipeline's archive reader. The
// zipball's synthetic top-level directory is stripped so paths match a
// clone of the same tree.
//
// The client carries authentication; github.NewClient(nil) works for
// public repositories. ref may be a branch, tag, or commit SHA; empty
// means the default branch.
func GitHubArchive(ctx context.Context, client *github.Client, owner, repo, ref string, read optimize.ReadOptions) ([]optimize.SourceFile, error) {
	target := owner + "/" + repo
	if client == nil {
		client = github.NewClient(nil)
	}
	read = readOptions(read)

	archiveURL, _, err := client.Repositories.GetArchiveLink(ctx, owner, repo, github.Zipball,
		&github.RepositoryContentGetOptions{Ref: ref}, 3)
	if err != nil {
		return nil, fetchErr(target, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL.String(), nil)
	if err != nil {
		return nil, fetchErr(target, err)
	}
	resp, err := client.Client().Do(req)
	if err != nil {
		return nil, fetchErr(target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fetchErr(target, fmt.Errorf("archive download returned %s", resp.Status))
	}

	// The downloaded zipball is compressed; its inflated size is still
	// bounded by the reader below. Cap the download itself at the same
	// ceiling to bound memory.
	body, err := io.ReadAll(io.LimitReader(resp.Body, read.MaxTotalSize+1))
	if err != nil {
		return nil, fetchErr(target, err)
	}
	if int64(len(body)) > read.MaxTotalSize {
		return nil, fetchErr(target, fmt.Errorf("archive download exceeds %d bytes", read.MaxTotalSize))
	}

	files, err := optimize.ReadArchiveBytes(body, read)
	if err != nil {
		return nil, fetchErr(target, err)
	}
	return stripArchiveRoot(files), nil
}

// treeFiles walks a billy filesystem and lifts its regular files into
// SourceFiles, applying the same validation as archive ingestion.
func treeFiles(bfs billy.Filesystem, read optimize.ReadOptions) ([]optimize.SourceFile, error) {
	validators := optimize.NewValidatorChain(
		&optimize.PathValidator{},
		&optimize.SizeValidator{MaxFileSize: read.MaxFileSize, MaxTotalSize: read.MaxTotalSize},
		&optimize.FileCountValidator{MaxFiles: read.MaxFiles},
	)

	var (
		files []optimize.SourceFile
		stats optimize.ArchiveStats
	)

	err := util.Walk(bfs, "/", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(path, "/")
		if info.IsDir() {
			if rel == ".git" {
				return filepath.SkipDir // git metadata is never part of the tree
			}
			return nil
		}
		if !info.Mode().IsRegular() || rel == "" {
			return nil
		}

		if verr := validators.ValidatePath(rel); verr != nil {
			return verr
		}
		if verr := validators.ValidateEntry(optimize.EntryInfo{Path: rel, Size: info.Size()}); verr != nil {
			return verr
		}
		stats.TotalFiles++
		stats.TotalSize += info.Size()
		if verr := validators.ValidateArchive(stats); verr != nil {
			return verr
		}

		data, rerr := util.ReadFile(bfs, path)
		if rerr != nil {
			return rerr
		}
		files = append(files, optimize.SourceFile{Path: rel, Data: data})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("repository worktree contains no files")
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// stripArchiveRoot removes the synthetic "owner-repo-sha/" directory that
// wraps every entry of a GitHub zipball. Files outside a single shared
// root are left untouched.
func stripArchiveRoot(files []optimize.SourceFile) []optimize.SourceFile {
	if len(files) == 0 {
		return files
	}

	root, _, found := strings.Cut(files[0].Path, "/")
	if !found {
		return files
	}
	prefix := root + "/"
	for _, f := range files {
		if !strings.HasPrefix(f.Path, prefix) {
			return files
		}
	}

	stripped := make([]optimize.SourceFile, len(files))
	for i, f := range files {
		stripped[i] = f
		stripped[i].Path = strings.TrimPrefix(f.Path, prefix)
	}
	return stripped
}

func readOptions(read optimize.ReadOptions) optimize.ReadOptions {
	if read == (optimize.ReadOptions{}) {
		return optimize.DefaultReadOptions
	}
	return read
}

func fetchErr(target string, err error) error {
	return optimize.NewPipelineError("fetch", target,
		fmt.Errorf("%w: %v", optimize.ErrSourceFetchFailed, err))
}
