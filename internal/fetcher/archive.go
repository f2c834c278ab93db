package fetcher

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractZIP extracts all files from a ZIP archive into destDir and returns
// the extracted file paths.
func ExtractZIP(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
	}
	defer r.Close() //nolint:errcheck

	var extracted []string
	for _, f := range r.File {
		path, err := extractZIPEntry(f, destDir)
		if err != nil {
			return extracted, err
		}
		if path != "" {
			extracted = append(extracted, path)
		}
	}

	return extracted, nil
}

// extractZIPEntry extracts a single zip.File to the destination directory.
// Returns the extracted file path, or empty string for directories.
func extractZIPEntry(f *zip.File, destDir string) (string, error) {
	destPath, err := safeJoin(destDir, f.Name)
	if err != nil {
		return "", err
	}

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(destPath, 0o755); err != nil {
			return "", eris.Wrap(err, "zip: create directory")
		}
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", eris.Wrap(err, "zip: create parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrap(err, "zip: open entry")
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		return "", eris.Wrap(err, "zip: create file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrap(err, "zip: write file")
	}

	return destPath, nil
}

// ExtractTarGz extracts all regular files from a gzipped tarball into
// destDir and returns the extracted file paths.
func ExtractTarGz(tarPath, destDir string) ([]string, error) {
	f, err := os.Open(tarPath)
	if err != nil {
		return nil, eris.Wrap(err, "targz: open archive")
	}
	defer f.Close() //nolint:errcheck

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, eris.Wrap(err, "targz: open gzip stream")
	}
	defer gz.Close() //nolint:errcheck

	tr := tar.NewReader(gz)
	var extracted []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return extracted, eris.Wrap(err, "targz: read entry")
		}

		destPath, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return extracted, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(destPath, 0o755); err != nil {
				return extracted, eris.Wrap(err, "targz: create directory")
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
				return extracted, eris.Wrap(err, "targz: create parent directory")
			}
			out, err := os.Create(destPath)
			if err != nil {
				return extracted, eris.Wrap(err, "targz: create file")
			}
			if _, err := io.Copy(out, tr); err != nil {
				_ = out.Close()
				return extracted, eris.Wrap(err, "targz: write file")
			}
			if err := out.Close(); err != nil {
				return extracted, eris.Wrap(err, "targz: close file")
			}
			extracted = append(extracted, destPath)
		}
	}

	return extracted, nil
}

// safeJoin joins an archive entry name onto destDir, rejecting path
// traversal (zip slip).
func safeJoin(destDir, name string) (string, error) {
	destPath := filepath.Join(destDir, name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("archive: illegal path %q", name)
	}
	return destPath, nil
}
