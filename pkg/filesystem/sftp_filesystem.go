package filesystem

import (
	"fmt"
	"os"
)

// Create creates a remote file for writing, truncating it if it exists.
func (c *SFTPConnection) Create(path string) (File, error) {
	file, err := c.sftpClient.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create remote file %s: %w", path, err)
	}

	return file, nil
}

// Mkdir creates a single remote directory.
func (c *SFTPConnection) Mkdir(path string) error {
	err := c.sftpClient.Mkdir(path)
	if err != nil {
		return fmt.Errorf("failed to create remote directory %s: %w", path, err)
	}

	return nil
}

// Open opens a remote file for reading.
func (c *SFTPConnection) Open(path string) (File, error) {
	file, err := c.sftpClient.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote file %s: %w", path, err)
	}

	return file, nil
}

// Remove removes a remote file or empty directory.
func (c *SFTPConnection) Remove(path string) error {
	err := c.sftpClient.Remove(path)
	if err != nil {
		return fmt.Errorf("failed to remove remote file %s: %w", path, err)
	}

	return nil
}

// Scan returns an iterator over the regular files under a remote directory.
func (c *SFTPConnection) Scan(root string) FileScanner {
	return newSFTPScanner(c.sftpClient, root)
}

// Stat returns information about a remote path.
func (c *SFTPConnection) Stat(path string) (os.FileInfo, error) {
	info, err := c.sftpClient.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat remote file %s: %w", path, err)
	}

	return info, nil
}
