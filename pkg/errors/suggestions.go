package errors

import "fmt"

// SuggestionGenerator generates actionable suggestions based on error category.
type SuggestionGenerator interface {
	Generate(category ErrorCategory, affectedPath string) []string
}

// NewSuggestionGenerator creates a new SuggestionGenerator.
func NewSuggestionGenerator() SuggestionGenerator {
	return &suggestionGenerator{}
}

// suggestionGenerator is the concrete implementation of SuggestionGenerator.
type suggestionGenerator struct{}

// Generate returns actionable suggestions based on the error category and affected path.
//
//nolint:cyclop // One case per category
func (g *suggestionGenerator) Generate(category ErrorCategory, affectedPath string) []string {
	switch category {
	case CategoryAuth:
		return g.generateAuthSuggestions(affectedPath)
	case CategoryConfig:
		return g.generateConfigSuggestions(affectedPath)
	case CategoryConnection:
		return g.generateConnectionSuggestions(affectedPath)
	case CategoryHostKey:
		return g.generateHostKeySuggestions(affectedPath)
	case CategoryListing:
		return g.generateListingSuggestions(affectedPath)
	case CategoryPermission:
		return g.generatePermissionSuggestions(affectedPath)
	case CategoryDiskSpace:
		return g.generateDiskSpaceSuggestions(affectedPath)
	case CategoryPath:
		return g.generatePathSuggestions(affectedPath)
	case CategoryTransfer:
		return g.generateTransferSuggestions(affectedPath)
	case CategoryUnknown:
		return g.generateUnknownSuggestions(affectedPath)
	default:
		return g.generateUnknownSuggestions(affectedPath)
	}
}

func (g *suggestionGenerator) generateAuthSuggestions(_ string) []string {
	return []string{
		"Check the username configured under ssh.username",
		"Verify the private key (ssh.ssh_key or ssh.key_path) is authorized on the remote host",
		"If using a password, verify ssh.password or GOSYNC_SSH_PASSWORD",
	}
}

func (g *suggestionGenerator) generateConfigSuggestions(field string) []string {
	suggestions := []string{
		"Run 'gosync --init' to create a default configuration file",
	}

	if field != "" {
		suggestions = append(suggestions, "Set "+field+" in config.json")
	}

	return suggestions
}

func (g *suggestionGenerator) generateConnectionSuggestions(host string) []string {
	suggestions := []string{
		"Check your network connection",
	}

	if host != "" {
		suggestions = append(suggestions, fmt.Sprintf("Verify %s is reachable with 'ssh %s'", host, host))
	} else {
		suggestions = append(suggestions, "Verify the remote host name and port")
	}

	return append(suggestions, "Make sure the SSH server is running on the remote host")
}

func (g *suggestionGenerator) generateHostKeySuggestions(_ string) []string {
	return []string{
		"The remote host key changed since it was first trusted",
		"If the change is expected, remove the old entry from the known_hosts file",
	}
}

func (g *suggestionGenerator) generateListingSuggestions(_ string) []string {
	return []string{
		"Make sure GNU find is available on the remote host",
		"Set sync.listing to \"sftp\" to list files without remote commands",
		"Check that the remote path is readable",
	}
}

func (g *suggestionGenerator) generateDiskSpaceSuggestions(path string) []string {
	suggestions := []string{
		"Free up space on the remote host",
		"Check available space with 'df -h'",
	}

	if path != "" {
		suggestions = append(suggestions, "Verify disk usage for the filesystem containing "+path)
	}

	return suggestions
}

func (g *suggestionGenerator) generatePathSuggestions(path string) []string {
	suggestions := []string{
		"Verify the path exists and is spelled correctly",
	}

	if path != "" {
		suggestions = append(suggestions, "Check if the path exists: "+path)
	}

	return suggestions
}

func (g *suggestionGenerator) generatePermissionSuggestions(path string) []string {
	suggestions := []string{
		"Ensure the remote user can write to the remote path",
	}

	if path != "" {
		suggestions = append(suggestions, fmt.Sprintf("Check permissions with 'ls -la %s'", path))
	} else {
		suggestions = append(suggestions, "Check permissions with 'ls -la' on the affected path")
	}

	return suggestions
}

func (g *suggestionGenerator) generateTransferSuggestions(path string) []string {
	suggestions := []string{
		"The file will be retried on the next sync pass",
	}

	if path != "" {
		suggestions = append(suggestions, "Make sure "+path+" is readable and not being written to")
	}

	return suggestions
}

func (g *suggestionGenerator) generateUnknownSuggestions(path string) []string {
	suggestions := []string{
		"Check the log file for more details",
	}

	if path != "" {
		suggestions = append(suggestions, "Verify the path is accessible: "+path)
	}

	return suggestions
}
