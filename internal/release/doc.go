// Package release queries published release metadata.
//
// This package handles:
//   - Querying the releases API for the latest release of a repository
//   - Classifying every failure as transport, protocol or missing-tag
//   - Locating the archive and checksum manifest for the running platform
//
// The client is stateless: each call performs exactly one request and the
// result is never cached, so callers decide whether and when to ask again.
//
// Example usage:
//
//	client := release.NewClient(release.WithProductID("porthole/1.4.0"))
//	info, err := client.FetchLatest(ctx, "porthole-app/porthole")
//	if err != nil {
//	    // no information available
//	}
//	if version.IsNewer(info.Tag, current) {
//	    // tell the user
//	}
package release
