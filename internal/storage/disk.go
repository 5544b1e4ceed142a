package storage

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Usage is the space taken by a set of files.
type Usage struct {
	Files int   `json:"files"`
	Bytes int64 `json:"bytes"`
}

// DiskUsage sums the files under the given paths. Each path may be a file or a
// directory (walked recursively). When ext is non-empty only files with that
// extension are counted. Missing paths contribute nothing.
func DiskUsage(ext string, paths ...string) (Usage, error) {
	var u Usage
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Usage{}, err
		}
		if !info.IsDir() {
			u.add(p, info.Size(), ext)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			u.add(path, fi.Size(), ext)
			return nil
		})
		if err != nil {
			return Usage{}, err
		}
	}
	return u, nil
}

func (u *Usage) add(path string, size int64, ext string) {
	if ext != "" && !strings.EqualFold(filepath.Ext(path), ext) {
		return
	}
	u.Files++
	u.Bytes += size
}
