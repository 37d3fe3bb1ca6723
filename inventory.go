// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package foodclassifier

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ClassCount is the number of files found in one class subdirectory.
type ClassCount struct {
	Class string
	Count int
}

// Inventory counts the files in each immediate subdirectory of root, sorted by subdirectory name.
// Every file is counted, image or not, following symbolic links; files directly under root are ignored.
func Inventory(root string) ([]ClassCount, error) {
	if err := checkDir(root); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fsError(err, "failed to list dataset directory %q", root)
	}
	var counts []ClassCount
	for _, entry := range entries {
		if isDir, _ := resolveEntry(root, entry); !isDir {
			continue
		}
		classDir := filepath.Join(root, entry.Name())
		files, err := os.ReadDir(classDir)
		if err != nil {
			return nil, fsError(err, "failed to list class directory %q", classDir)
		}
		count := 0
		for _, f := range files {
			if _, isFile := resolveEntry(classDir, f); isFile {
				count++
			}
		}
		counts = append(counts, ClassCount{Class: entry.Name(), Count: count})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Class < counts[j].Class })
	return counts, nil
}

// PrintInventory writes one "<class>: <n> images" line per class.
func PrintInventory(w io.Writer, counts []ClassCount) {
	for _, c := range counts {
		_, _ = fmt.Fprintf(w, "%s: %s images\n", c.Class, humanize.Comma(int64(c.Count)))
	}
}

// checkDir returns an ErrNotFound error if dir doesn't exist or is not a directory.
func checkDir(dir string) error {
	fi, err := os.Stat(dir)
	if err != nil {
		return fsError(err, "dataset directory %q", dir)
	}
	if !fi.IsDir() {
		return errors.Wrapf(ErrNotFound, "%q is not a directory", dir)
	}
	return nil
}

// resolveEntry reports whether the directory entry is a directory or a regular file, following symbolic links.
// Broken links are neither, and are logged.
func resolveEntry(dir string, entry os.DirEntry) (isDir, isFile bool) {
	if entry.Type()&os.ModeSymlink == 0 {
		return entry.IsDir(), entry.Type().IsRegular()
	}
	fi, err := os.Stat(filepath.Join(dir, entry.Name()))
	if err != nil {
		klog.Warningf("Ignoring %q: %v", filepath.Join(dir, entry.Name()), err)
		return false, false
	}
	return fi.IsDir(), fi.Mode().IsRegular()
}
