package ports

// FileSystem reads run configs and writes run reports (summary, per-frame
// statistics). Streaming outputs use their own writers.
type FileSystem interface {
	// ReadFile returns the whole file.
	ReadFile(path string) ([]byte, error)

	// WriteFile replaces path with data, creating parent directories.
	WriteFile(path string, data []byte) error

	// Exists reports whether path exists.
	Exists(path string) (bool, error)
}
