package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
)

// EnsureRemoteDir creates dir on the remote one segment at a time.
// Existing segments are left alone, so calling it repeatedly is safe.
func EnsureRemoteDir(remote RemoteFS, dir string) error {
	dir = strings.ReplaceAll(dir, `\`, "/")

	current := ""
	if strings.HasPrefix(dir, "/") {
		current = "/"
	}

	for _, part := range strings.Split(dir, "/") {
		if part == "" || part == "." {
			continue
		}

		current = path.Join(current, part)

		info, err := remote.Stat(current)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("remote path %s exists and is not a directory", current) //nolint:err113 // Path conflict with actual path
			}

			continue
		}

		if !errors.Is(err, os.ErrNotExist) {
			return err
		}

		mkdirErr := remote.Mkdir(current)
		if mkdirErr != nil {
			// Lost a race with another creator.
			if info, statErr := remote.Stat(current); statErr == nil && info.IsDir() {
				continue
			}

			return mkdirErr
		}
	}

	return nil
}
