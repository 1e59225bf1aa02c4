package syncengine

import (
	"fmt"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/joe/gosync/pkg/fileops"
	"github.com/joe/gosync/pkg/filesystem"
)

// LocalFiles lists the regular files under root that pass the filter.
// Relative paths use forward slashes.
func LocalFiles(local filesystem.FileSystem, root string, filter FileFilter) ([]filesystem.FileInfo, error) {
	files, err := filesystem.CollectScan(local.Scan(root))
	if err != nil {
		return nil, fmt.Errorf("failed to list local files in %s: %w", root, err)
	}

	if filter == nil {
		return files, nil
	}

	included := files[:0]

	for _, file := range files {
		if filter.ShouldInclude(file.RelativePath) {
			included = append(included, file)
		}
	}

	return included, nil
}

// Diff returns the local relative paths with no counterpart in the remote
// listing, sorted. Paths are compared case-insensitively using the name the
// upload would store remotely, so a file whose name needed sanitizing is not
// sent again. Local paths that collide after lower-casing are sent once.
func Diff(local, remote []string) []string {
	remoteKeys := mapset.NewThreadUnsafeSetWithSize[string](len(remote))
	for _, rel := range remote {
		remoteKeys.Add(strings.ToLower(rel))
	}

	sorted := append([]string(nil), local...)
	sort.Strings(sorted)

	queued := mapset.NewThreadUnsafeSetWithSize[string](len(sorted))
	toSend := make([]string, 0)

	for _, rel := range sorted {
		key := remoteKey(rel)
		if remoteKeys.Contains(key) || !queued.Add(key) {
			continue
		}

		toSend = append(toSend, rel)
	}

	return toSend
}

// remoteKey is the comparison key for a local relative path.
func remoteKey(rel string) string {
	return strings.ToLower(fileops.RemoteName(rel))
}

func relativePaths(files []filesystem.FileInfo) []string {
	paths := make([]string, 0, len(files))
	for _, file := range files {
		paths = append(paths, file.RelativePath)
	}

	return paths
}
