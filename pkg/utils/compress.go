/*
Author: Amjad Yaseen
Email: ayaseen@redhat.com
Date: 2023-03-06
Modified: 2026-10-15

This file provides utilities for archiving probe reports. It includes:

- A function to pack a report into a ZIP archive, encrypted when a password is set
- Removal of the original report once the archive is written
*/

package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alexmullins/zip"
)

// ArchiveReport packs a report into <report>.zip, encrypted when a password
// is given, and removes the original file on success
func ArchiveReport(reportPath, password string) (string, error) {
	src, err := os.Open(reportPath)
	if err != nil {
		return "", fmt.Errorf("failed to open report: %w", err)
	}
	defer src.Close()

	zipPath := reportPath + ".zip"
	if err := writeArchive(zipPath, filepath.Base(reportPath), password, src); err != nil {
		_ = os.Remove(zipPath)
		return "", err
	}

	src.Close()
	if err := os.Remove(reportPath); err != nil {
		return zipPath, fmt.Errorf("archive written but failed to remove %s: %w", reportPath, err)
	}

	return zipPath, nil
}

func writeArchive(zipPath, entryName, password string, src io.Reader) error {
	zipFile, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("failed to create zip file: %w", err)
	}
	defer zipFile.Close()

	zipWriter := zip.NewWriter(zipFile)

	var w io.Writer
	if password != "" {
		w, err = zipWriter.Encrypt(entryName, password)
	} else {
		w, err = zipWriter.Create(entryName)
	}
	if err != nil {
		return fmt.Errorf("failed to create zip entry: %w", err)
	}

	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("failed to write to zip: %w", err)
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("failed to finalise zip: %w", err)
	}
	return nil
}
