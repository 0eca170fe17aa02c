package fetcher

import (
	"archive/zip"
	"io"
	"path"
	"strings"

	"github.com/rotisserie/eris"
)

// ZipEntry is one data-bearing file inside an archive, read fully into
// memory. Price-book archives are small operator uploads; buffering them
// keeps the normalizer free of temp-file bookkeeping.
type ZipEntry struct {
	Name string // base name within the archive
	Data []byte
}

// ReadZIP returns every regular file in the archive whose extension is in
// exts (lowercase, with dot, e.g. ".csv"). Nil exts means every file.
// Directory entries and macOS resource-fork noise are skipped.
func ReadZIP(zipPath string, exts []string) ([]ZipEntry, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrapf(err, "zip: open %s", zipPath)
	}
	defer r.Close() //nolint:errcheck

	wanted := make(map[string]bool, len(exts))
	for _, ext := range exts {
		wanted[ext] = true
	}

	var entries []ZipEntry
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := path.Base(f.Name)
		if strings.HasPrefix(name, "._") || strings.Contains(f.Name, "__MACOSX/") {
			continue
		}
		if len(wanted) > 0 && !wanted[strings.ToLower(path.Ext(name))] {
			continue
		}

		data, err := readZIPEntry(f)
		if err != nil {
			return entries, err
		}
		entries = append(entries, ZipEntry{Name: name, Data: data})
	}

	return entries, nil
}

func readZIPEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, eris.Wrapf(err, "zip: open entry %s", f.Name)
	}
	defer rc.Close() //nolint:errcheck

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, eris.Wrapf(err, "zip: read entry %s", f.Name)
	}
	return data, nil
}
