package release

import "strings"

// ChecksumsAssetName is the conventional name of the SHA-256 manifest
// published next to release archives.
const ChecksumsAssetName = "checksums.txt"

// AssetsFor returns every asset built for goos/goarch in release order.
// Checksum manifests are never returned.
func (i *Info) AssetsFor(goos, goarch string) []Asset {
	if i == nil {
		return nil
	}
	patterns := buildAssetPatterns(goos, goarch)
	var out []Asset
	for _, asset := range i.Assets {
		name := strings.ToLower(asset.Name)
		if name == ChecksumsAssetName {
			continue
		}
		for _, pattern := range patterns {
			if strings.Contains(name, pattern) {
				out = append(out, asset)
				break
			}
		}
	}
	return out
}

// Checksums returns the checksum manifest asset, if the release has one.
func (i *Info) Checksums() (Asset, bool) {
	if i == nil {
		return Asset{}, false
	}
	for _, asset := range i.Assets {
		if strings.EqualFold(asset.Name, ChecksumsAssetName) {
			return asset, true
		}
	}
	return Asset{}, false
}

// buildAssetPatterns returns patterns to match for the given OS/arch.
func buildAssetPatterns(goos, arch string) []string {
	archPatterns := []string{arch}
	switch arch {
	case "amd64":
		archPatterns = append(archPatterns, "x86_64", "x64")
	case "arm64":
		archPatterns = append(archPatterns, "aarch64")
	}

	osPatterns := []string{goos}
	switch goos {
	case "darwin":
		osPatterns = append(osPatterns, "macos", "osx")
	case "windows":
		osPatterns = append(osPatterns, "win")
	}

	var patterns []string
	for _, o := range osPatterns {
		for _, a := range archPatterns {
			patterns = append(patterns, o+"_"+a, o+"-"+a, a+"_"+o, a+"-"+o)
		}
	}
	return patterns
}
