package utils

import (
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"lms/config"

	"github.com/google/uuid"
)

// SaveUploadedFile copies the upload into destDir under a random name and returns the stored path.
func SaveUploadedFile(file *multipart.FileHeader, destDir string) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	filePath := filepath.Join(destDir, uuid.NewString()+ext)

	dst, err := os.Create(filePath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}

	return filePath, nil
}

// GetFileURL maps a stored path under UploadDir to its public /uploads URL.
func GetFileURL(filePath string) string {
	if filePath == "" {
		return ""
	}
	rel := filepath.Base(filePath)
	if config.AppConfig != nil {
		if r, err := filepath.Rel(config.AppConfig.UploadDir, filePath); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}
	return "/uploads/" + filepath.ToSlash(rel)
}
