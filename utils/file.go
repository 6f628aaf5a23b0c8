package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// EnsureUploadDir creates the uploads directory if it doesn't exist
func EnsureUploadDir() error {
	return os.MkdirAll("uploads", os.ModePerm)
}

// SaveFile saves the uploaded file to the given destination path
func SaveFile(fileHeader *multipart.FileHeader, destPath string) error {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, file)
	return err
}

// LocalUploader stores receipts on local disk under ./uploads, for
// environments without R2 credentials. URLs are served by the /uploads
// static route.
type LocalUploader struct{}

func (LocalUploader) Upload(fileHeader *multipart.FileHeader, key string) (string, error) {
	dest := filepath.Join("uploads", filepath.FromSlash(key))
	if err := SaveFile(fileHeader, dest); err != nil {
		return "", fmt.Errorf("failed to save receipt locally: %w", err)
	}
	return "/uploads/" + key, nil
}
