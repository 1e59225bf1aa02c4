package filesystem

import (
	"io/fs"
	"path/filepath"
)

// newRealFileScanner creates a scanner over the regular files under root.
func newRealFileScanner(root string) FileScanner {
	return newSliceScanner(func() ([]FileInfo, error) {
		return walkLocal(root)
	})
}

// walkLocal walks the directory tree and collects all regular files.
func walkLocal(root string) ([]FileInfo, error) {
	files := make([]FileInfo, 0)

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		files = append(files, FileInfo{
			RelativePath: filepath.ToSlash(relPath),
			Size:         info.Size(),
			ModTime:      info.ModTime(),
		})

		return nil
	})

	return files, err
}
