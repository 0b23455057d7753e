package provider

import (
	"bytes"
	"context"
	"crypto"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/inconshreveable/go-update"
	log "github.com/sirupsen/logrus"

	apperrors "porthole/internal/errors"
	"porthole/internal/release"
	"porthole/internal/version"
)

// Error variables for provider-specific failures.
var (
	ErrNoAsset          = errors.New("no release asset for this platform")
	ErrChecksumMismatch = errors.New("checksum verification failed")
	ErrDownloadFailed   = errors.New("download failed")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNothingStaged    = errors.New("no update staged")
	ErrNoBackup         = errors.New("no backup to roll back to")
)

const (
	stagedSuffix = ".staged"
	backupSuffix = ".backup"
)

// Querier is the release lookup the provider needs.
type Querier interface {
	FetchLatest(ctx context.Context, ownerRepo string) (*release.Info, error)
}

// Release is a Provider backed by a release feed. It downloads the
// platform archive next to the running executable, and swaps it in when
// asked to.
type Release struct {
	querier    Querier
	ownerRepo  string
	current    string
	productID  string
	httpClient *http.Client
	goos       string
	goarch     string
	executable func() (string, error)
	relaunch   func(exe string, args []string) error
	quit       func()

	mu        sync.Mutex
	staged    string
	stagedFor string
	stagedSum []byte
	installed bool
	// relaunchPath is set by QuitAndInstall and consumed by Relaunch.
	relaunchPath string
}

// ReleaseOption configures a Release provider.
type ReleaseOption func(*Release)

// WithDownloadClient sets the HTTP client used for asset downloads.
func WithDownloadClient(client *http.Client) ReleaseOption {
	return func(r *Release) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// WithProductID sets the User-Agent sent with downloads.
func WithProductID(id string) ReleaseOption {
	return func(r *Release) {
		if id != "" {
			r.productID = id
		}
	}
}

// WithPlatform overrides the OS/arch used to pick an asset.
func WithPlatform(goos, goarch string) ReleaseOption {
	return func(r *Release) {
		r.goos = goos
		r.goarch = goarch
	}
}

// WithExecutable overrides how the running executable is located.
func WithExecutable(fn func() (string, error)) ReleaseOption {
	return func(r *Release) {
		if fn != nil {
			r.executable = fn
		}
	}
}

// WithRelaunch overrides how the installed binary is started again.
func WithRelaunch(fn func(exe string, args []string) error) ReleaseOption {
	return func(r *Release) {
		if fn != nil {
			r.relaunch = fn
		}
	}
}

// WithQuit sets the function that asks the host to shut down once a restart
// install succeeded.
func WithQuit(fn func()) ReleaseOption {
	return func(r *Release) {
		r.quit = fn
	}
}

// NewRelease creates a provider that installs releases of ownerRepo newer
// than current.
func NewRelease(q Querier, ownerRepo, current string, opts ...ReleaseOption) *Release {
	r := &Release{
		querier:   q,
		ownerRepo: ownerRepo,
		current:   current,
		productID: release.DefaultProductID,
		httpClient: &http.Client{
			Timeout: 0, // No timeout for downloads
		},
		goos:       runtime.GOOS,
		goarch:     runtime.GOARCH,
		executable: os.Executable,
		relaunch:   relaunchProcess,
		quit:       func() {},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CheckAndNotify queries the feed and, when a newer release exists, stages
// it. Events: not-available, or available followed by downloaded or error.
func (r *Release) CheckAndNotify(ctx context.Context) <-chan Event {
	ch := make(chan Event, 2)
	go func() {
		defer close(ch)

		info, err := r.querier.FetchLatest(ctx, r.ownerRepo)
		if err != nil {
			ch <- Event{Kind: KindError, Err: apperrors.New(apperrors.CodeProvider, "query release", err)}
			return
		}
		if !version.IsNewer(info.Tag, r.current) {
			ch <- Event{Kind: KindNotAvailable, Version: info.Tag}
			return
		}

		ch <- Event{Kind: KindAvailable, Version: info.Tag, Notes: info.Body}
		if err := r.stage(ctx, info); err != nil {
			ch <- Event{Kind: KindError, Version: info.Tag, Err: apperrors.New(apperrors.CodeProvider, "stage update", err)}
			return
		}
		ch <- Event{Kind: KindDownloaded, Version: info.Tag, Notes: info.Body}
	}()
	return ch
}

// Staged returns the staged binary path and its version, if any.
func (r *Release) Staged() (string, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.staged, r.stagedFor, r.staged != "" && !r.installed
}

// stage downloads, verifies and unpacks the platform asset to
// <executable>.staged.
func (r *Release) stage(ctx context.Context, info *release.Info) error {
	exe, err := r.resolveExecutable()
	if err != nil {
		return err
	}
	asset, kind, ok := pickAsset(info.AssetsFor(r.goos, r.goarch), filepath.Base(exe))
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNoAsset, r.goos, r.goarch)
	}

	perm := update.Options{TargetPath: exe, TargetMode: 0755}
	if err := perm.CheckPermissions(); err != nil {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	dir := filepath.Dir(exe)
	tmp, err := os.CreateTemp(dir, ".porthole-download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(tmpPath) }()

	sum, err := downloadToFile(ctx, r.httpClient, r.productID, asset.BrowserDownloadURL, tmpPath)
	if err != nil {
		return err
	}
	if err := r.verify(ctx, info, asset.Name, sum); err != nil {
		return err
	}

	staged := exe + stagedSuffix
	if err := unpack(kind, tmpPath, filepath.Base(exe), staged); err != nil {
		_ = os.Remove(staged)
		return err
	}
	//nolint:gosec // G302: binary needs to be executable
	if err := os.Chmod(staged, 0755); err != nil {
		_ = os.Remove(staged)
		return fmt.Errorf("set executable permission: %w", err)
	}
	stagedSum, err := fileSHA256(staged)
	if err != nil {
		_ = os.Remove(staged)
		return err
	}

	r.mu.Lock()
	r.staged = staged
	r.stagedFor = info.Tag
	r.stagedSum = stagedSum
	r.installed = false
	r.mu.Unlock()

	log.WithFields(log.Fields{"version": info.Tag, "asset": asset.Name, "path": staged}).Info("update staged")
	return nil
}

// pickAsset returns the first asset that can be turned into binaryName.
func pickAsset(assets []release.Asset, binaryName string) (release.Asset, assetKind, bool) {
	for _, asset := range assets {
		kind := classifyAsset(asset.Name, binaryName)
		if kind == assetUnsupported {
			log.WithField("asset", asset.Name).Debug("skipping asset that is not an archive or a bare binary")
			continue
		}
		return asset, kind, true
	}
	return release.Asset{}, assetUnsupported, false
}

// unpack writes the binary held by the downloaded file at src to dest.
func unpack(kind assetKind, src, binaryName, dest string) error {
	switch kind {
	case assetTarball:
		//nolint:gosec // G304: temp file we just wrote
		f, err := os.Open(src)
		if err != nil {
			return fmt.Errorf("open download: %w", err)
		}
		defer func() { _ = f.Close() }()
		return extractBinary(f, binaryName, dest)
	case assetZip:
		return extractZipBinary(src, binaryName, dest)
	case assetRaw:
		archive, err := looksLikeArchive(src)
		if err != nil {
			return err
		}
		if archive {
			return fmt.Errorf("%w: asset is an archive, not a binary", ErrNoAsset)
		}
		if err := os.Rename(src, dest); err != nil {
			return fmt.Errorf("stage binary: %w", err)
		}
		return nil
	default:
		return ErrNoAsset
	}
}

func fileSHA256(p string) ([]byte, error) {
	//nolint:gosec // G304: staged binary we just wrote
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open staged binary: %w", err)
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("hash staged binary: %w", err)
	}
	return h.Sum(nil), nil
}

// verify compares sum with the release's checksum manifest. Releases
// without a manifest are accepted.
func (r *Release) verify(ctx context.Context, info *release.Info, assetName, sum string) error {
	manifest, ok := info.Checksums()
	if !ok {
		log.WithField("asset", assetName).Debug("release has no checksum manifest")
		return nil
	}
	data, err := downloadToMemory(ctx, r.httpClient, r.productID, manifest.BrowserDownloadURL, maxChecksumBytes)
	if err != nil {
		return fmt.Errorf("fetch checksums: %w", err)
	}
	sums, err := parseChecksumFile(bytes.NewReader(data))
	if err != nil {
		return err
	}
	expected, ok := sums[assetName]
	if !ok {
		return fmt.Errorf("%w: %s missing from %s", ErrChecksumMismatch, assetName, manifest.Name)
	}
	if expected != sum {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, expected, sum)
	}
	return nil
}

// QuitAndInstall installs the staged binary, marks a relaunch as pending
// and asks the host to quit. The host calls Relaunch once it has released
// the terminal.
func (r *Release) QuitAndInstall() error {
	exe, err := r.install()
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.relaunchPath = exe
	r.mu.Unlock()
	if r.quit != nil {
		r.quit()
	}
	return nil
}

// Relaunch starts the binary installed by QuitAndInstall. It does nothing
// when no restart was asked for, and runs at most once.
func (r *Release) Relaunch() error {
	r.mu.Lock()
	exe := r.relaunchPath
	r.relaunchPath = ""
	r.mu.Unlock()
	if exe == "" {
		return nil
	}
	log.WithField("path", exe).Info("relaunching updated binary")
	if err := r.relaunch(exe, os.Args[1:]); err != nil {
		return apperrors.New(apperrors.CodeProvider, "relaunch", err)
	}
	return nil
}

// ApplyOnExit installs a staged update in place. The next launch runs it.
func (r *Release) ApplyOnExit() error {
	r.mu.Lock()
	pending := r.staged != "" && !r.installed
	r.mu.Unlock()
	if !pending {
		return nil
	}
	_, err := r.install()
	return err
}

// install swaps the staged binary in with go-update, keeping the previous
// one at <executable>.backup. The staged file must still match the hash
// taken when it was staged.
func (r *Release) install() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.staged == "" {
		return "", apperrors.New(apperrors.CodeProvider, "install", ErrNothingStaged)
	}
	exe, err := r.resolveExecutable()
	if err != nil {
		return "", apperrors.New(apperrors.CodeProvider, "install", err)
	}
	if r.installed {
		return exe, nil
	}

	//nolint:gosec // G304: staging path we chose
	f, err := os.Open(r.staged)
	if err != nil {
		return "", apperrors.New(apperrors.CodeProvider, "open staged binary", err)
	}
	err = update.Apply(f, update.Options{
		TargetPath:  exe,
		TargetMode:  0755,
		Checksum:    r.stagedSum,
		Hash:        crypto.SHA256,
		OldSavePath: exe + backupSuffix,
	})
	_ = f.Close()
	if err != nil {
		if rerr := update.RollbackError(err); rerr != nil {
			log.WithError(rerr).Error("failed to restore previous binary")
			return "", apperrors.New(apperrors.CodeProvider, "restore previous binary", rerr)
		}
		return "", apperrors.New(apperrors.CodeProvider, "install new binary", err)
	}
	_ = os.Remove(r.staged)

	r.installed = true
	log.WithFields(log.Fields{"version": r.stagedFor, "path": exe}).Info("update installed")
	return exe, nil
}

// Rollback puts back the binary that the last install of exe saved.
func Rollback(exe string) error {
	backupPath := exe + backupSuffix
	//nolint:gosec // G304: backup path derived from our own executable
	f, err := os.Open(backupPath)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s does not exist", ErrNoBackup, backupPath)
	}
	if err != nil {
		return fmt.Errorf("open backup: %w", err)
	}
	err = update.Apply(f, update.Options{TargetPath: exe, TargetMode: 0755})
	_ = f.Close()
	if err != nil {
		if rerr := update.RollbackError(err); rerr != nil {
			return fmt.Errorf("restore %s: %w", exe, rerr)
		}
		return fmt.Errorf("restore backup: %w", err)
	}
	if err := os.Remove(backupPath); err != nil {
		log.WithError(err).Warn("could not remove backup after rollback")
	}
	log.WithField("path", exe).Info("rolled back to previous binary")
	return nil
}

func (r *Release) resolveExecutable() (string, error) {
	exe, err := r.executable()
	if err != nil {
		return "", fmt.Errorf("get executable path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolve symlinks: %w", err)
	}
	return resolved, nil
}
