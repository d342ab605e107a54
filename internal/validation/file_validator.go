package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"pricefill/internal/config"
	apperrors "pricefill/internal/errors"
)

// FileValidator checks input and output paths before a run touches them
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateFile checks that path exists, is a regular file and can be opened
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return apperrors.NewNotFoundError(fmt.Sprintf("input file %s", path)).WithContext("path", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("failed to stat file %s", path), err).WithContext("path", path)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return apperrors.NewValidationError(fmt.Sprintf("%s is a directory, not a file", path)).WithContext("path", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("file %s is not readable", path), err).WithContext("path", path)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateInputs checks the required inputs of a run. The supplementary dataset is
// optional: when it is named but missing a warning is logged and no error returned.
func (v *FileValidator) ValidateInputs(paths config.Paths) error {
	required := []struct {
		name string
		path string
	}{
		{"collection", paths.Collection},
		{"products", paths.Products},
		{"prices", paths.Prices},
	}
	for _, input := range required {
		if input.path == "" {
			return apperrors.NewValidationError(fmt.Sprintf("%s path is required", input.name))
		}
		if err := v.ValidateFile(input.path); err != nil {
			return err
		}
	}

	if paths.ScryfallBulk != "" && !config.FileExists(paths.ScryfallBulk) {
		v.logger.Warn("Supplementary dataset not found, continuing without it",
			slog.String("file", paths.ScryfallBulk))
	}
	return nil
}

// ValidateOutputPath ensures the parent directory of path exists or can be created
// and that path itself is not a directory
func (v *FileValidator) ValidateOutputPath(path string) error {
	if path == "" {
		return apperrors.NewValidationError("output path is required")
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return apperrors.NewValidationError(fmt.Sprintf("output path %s is a directory", path)).WithContext("path", path)
	}
	if err := v.ValidateOutputDirectory(filepath.Dir(path)); err != nil {
		return err
	}
	return nil
}

// ValidateOutputDirectory ensures output directory exists or can be created and is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	// Verify it's writable by creating a test file
	file, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	name := file.Name()
	file.Close()
	os.Remove(name)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}
