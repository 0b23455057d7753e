package provider

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// assetKind says how a downloaded asset becomes the staged binary.
type assetKind int

const (
	assetUnsupported assetKind = iota
	assetTarball
	assetZip
	assetRaw
)

// Installer, package and bare compression formats. None of them is the
// binary itself, and none is unpacked here.
var unsupportedSuffixes = []string{
	".msi", ".msix", ".dmg", ".pkg", ".deb", ".rpm", ".apk", ".appimage", ".snap",
	".7z", ".rar", ".gz", ".xz", ".bz2", ".zst", ".tar",
	".sig", ".asc", ".pem", ".sbom", ".json", ".txt", ".sha256",
}

// archiveMagic holds the leading bytes of archive formats a raw asset must
// not start with.
var archiveMagic = [][]byte{
	[]byte("PK\x03\x04"),
	{0x1f, 0x8b},
	[]byte("7z\xbc\xaf\x27\x1c"),
	{0xfd, '7', 'z', 'X', 'Z', 0x00},
	[]byte("BZh"),
	{0x28, 0xb5, 0x2f, 0xfd},
	[]byte("Rar!"),
}

// classifyAsset decides how assetName is turned into binaryName. A raw
// asset must be named after the binary and carry .exe exactly when the
// binary does.
func classifyAsset(assetName, binaryName string) assetKind {
	lower := strings.ToLower(assetName)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return assetTarball
	case strings.HasSuffix(lower, ".zip"):
		return assetZip
	}
	for _, suffix := range unsupportedSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return assetUnsupported
		}
	}

	wantExe := strings.HasSuffix(strings.ToLower(binaryName), ".exe")
	if strings.HasSuffix(lower, ".exe") != wantExe {
		return assetUnsupported
	}
	if !strings.HasPrefix(lower, binaryStem(binaryName)) {
		return assetUnsupported
	}
	return assetRaw
}

// binaryStem strips a trailing .exe so archives built on one platform match
// executables named on another.
func binaryStem(name string) string {
	return strings.TrimSuffix(strings.ToLower(name), ".exe")
}

// looksLikeArchive reports whether the file at p starts with a known
// archive signature.
func looksLikeArchive(p string) (bool, error) {
	//nolint:gosec // G304: temp file we just wrote
	f, err := os.Open(p)
	if err != nil {
		return false, fmt.Errorf("open download: %w", err)
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, 8)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, fmt.Errorf("read download: %w", err)
	}
	head = head[:n]
	for _, magic := range archiveMagic {
		if bytes.HasPrefix(head, magic) {
			return true, nil
		}
	}
	return false, nil
}

// extractBinary copies the entry named binaryName (ignoring directories and
// a .exe suffix) out of a .tar.gz stream into dest.
func extractBinary(r io.Reader, binaryName, dest string) error {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer func() { _ = gzr.Close() }()

	want := binaryStem(binaryName)
	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		// Tar names always use forward slashes.
		if binaryStem(path.Base(header.Name)) != want {
			continue
		}
		return writeStaged(dest, tr)
	}
	return fmt.Errorf("binary %q not found in archive", binaryName)
}

// extractZipBinary copies the regular file named binaryName out of the zip
// archive at src into dest.
func extractZipBinary(src, binaryName, dest string) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer func() { _ = zr.Close() }()

	want := binaryStem(binaryName)
	for _, f := range zr.File {
		if !f.Mode().IsRegular() {
			continue
		}
		// Zip names use forward slashes, but some Windows tools write
		// backslashes.
		name := path.Base(strings.ReplaceAll(f.Name, "\\", "/"))
		if binaryStem(name) != want {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s in zip: %w", f.Name, err)
		}
		err = writeStaged(dest, rc)
		_ = rc.Close()
		return err
	}
	return fmt.Errorf("binary %q not found in archive", binaryName)
}

func writeStaged(dest string, r io.Reader) error {
	//nolint:gosec // G304: dest is the staging path we chose
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	//nolint:gosec // G110: archive was checksum-verified before extraction
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return fmt.Errorf("extract file: %w", err)
	}
	return out.Close()
}

// parseChecksumFile parses "sha256hash  filename" lines into a map keyed by
// base file name.
func parseChecksumFile(r io.Reader) (map[string]string, error) {
	checksums := make(map[string]string)
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		hash := strings.ToLower(fields[0])
		// sha256sum marks binary mode with a leading '*'.
		filename := path.Base(strings.TrimPrefix(fields[1], "*"))
		if hash != "" && filename != "" {
			checksums[filename] = hash
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read checksums: %w", err)
	}
	return checksums, nil
}
