package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"resumeform/internal/errors"
	"resumeform/internal/types"
	"resumeform/internal/utils"
)

// FileProcessor handles common file operations
type FileProcessor struct {
	logger *errors.Logger
}

// NewFileProcessor creates a new file processor instance
func NewFileProcessor(logger *errors.Logger) *FileProcessor {
	if logger == nil {
		logger = errors.Discard()
	}
	return &FileProcessor{logger: logger}
}

// ReadFile reads content from a file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) (string, error) {
	content, err := fp.readBytes(filename, 0)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// readBytes reads a whole file. maxSize > 0 rejects larger files.
func (fp *FileProcessor) readBytes(filename string, maxSize int64) ([]byte, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	var r io.Reader = file
	if maxSize > 0 {
		r = io.LimitReader(file, maxSize+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}
	if maxSize > 0 && int64(len(content)) > maxSize {
		return nil, errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("File %s is larger than %s", filename, utils.FormatFileSize(maxSize)), nil)
	}

	return content, nil
}

// LoadSelectedFile validates path and reads it into a form selection.
// Files above maxSize (when > 0) are rejected. A type outside allowed is
// only logged; accepting or refusing it is up to the endpoint.
func (fp *FileProcessor) LoadSelectedFile(path string, maxSize int64, allowed []string) (*types.SelectedFile, error) {
	if err := utils.ValidateInputFile(path); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Invalid file %s", path), err)
	}

	if !utils.IsAllowedResumeFile(path, allowed) {
		fp.logger.Warn("File type may be rejected by the analysis endpoint",
			"filename", filepath.Base(path),
			"extension", utils.GetFileExtension(path))
	}

	content, err := fp.readBytes(path, maxSize)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	return &types.SelectedFile{
		Name:        name,
		Size:        int64(len(content)),
		ContentType: utils.DetectContentType(name, content),
		Content:     content,
		Path:        path,
	}, nil
}

// Loader returns LoadSelectedFile bound to the given limits
func (fp *FileProcessor) Loader(maxSize int64, allowed []string) func(string) (*types.SelectedFile, error) {
	return func(path string) (*types.SelectedFile, error) {
		return fp.LoadSelectedFile(path, maxSize, allowed)
	}
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		err := os.MkdirAll(dir, 0750)
		if err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	err := os.WriteFile(filename, []byte(content), 0600)
	if err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}
