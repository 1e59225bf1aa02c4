//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package filesystem_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/gosync/pkg/filesystem"
)

func relativePaths(files []filesystem.FileInfo) []string {
	paths := make([]string, 0, len(files))
	for _, file := range files {
		paths = append(paths, file.RelativePath)
	}

	return paths
}

func TestRealFileSystem_ScanYieldsRegularFilesWithSlashes(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	root := t.TempDir()
	g.Expect(os.MkdirAll(filepath.Join(root, "sub", "deeper"), 0o750)).Should(Succeed())
	g.Expect(os.WriteFile(filepath.Join(root, "top.txt"), []byte("a"), 0o600)).Should(Succeed())
	g.Expect(os.WriteFile(filepath.Join(root, "sub", "deeper", "leaf.txt"), []byte("bb"), 0o600)).Should(Succeed())

	if runtime.GOOS != "windows" {
		g.Expect(os.Symlink(filepath.Join(root, "top.txt"), filepath.Join(root, "link.txt"))).Should(Succeed())
	}

	files, err := filesystem.CollectScan(filesystem.NewRealFileSystem().Scan(root))

	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(relativePaths(files)).Should(ConsistOf("top.txt", "sub/deeper/leaf.txt"))
}

func TestRealFileSystem_ScanMissingRoot(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	_, err := filesystem.CollectScan(filesystem.NewRealFileSystem().Scan(filepath.Join(t.TempDir(), "missing")))

	g.Expect(err).Should(HaveOccurred())
}

func TestMockRemote_ScanSkipsDirectoriesAndLinks(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	remote := filesystem.NewMockRemote()
	remote.AddFile("/srv/sync/a.txt", []byte("a"))
	remote.AddFile("/srv/sync/docs/b.txt", []byte("b"))
	remote.AddSymlink("/srv/sync/link")
	remote.AddFile("/srv/other.txt", []byte("x"))

	files, err := filesystem.CollectScan(remote.Scan("/srv/sync"))

	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(relativePaths(files)).Should(Equal([]string{"a.txt", "docs/b.txt"}))
}
