// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

// Package downloader fetches remote resources into local files through an
// on-disk cache keyed by the SHA-256 of the URL, so repeated runs against
// the same endpoints are served from disk.
package downloader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/containerd/continuity/fs"
	"github.com/sirupsen/logrus"

	"github.com/sweagent-dev/sweagent/pkg/httpclientutil"
	"github.com/sweagent-dev/sweagent/pkg/localpathutil"
	"github.com/sweagent-dev/sweagent/pkg/lockutil"
	"github.com/sweagent-dev/sweagent/pkg/progressbar"
)

// HideProgress suppresses progress output; tests set it.
var HideProgress bool

type Status = string

const (
	StatusUnknown    Status = ""
	StatusDownloaded Status = "downloaded"
	StatusSkipped    Status = "skipped"
	StatusUsedCache  Status = "used-cache"
)

type Result struct {
	Status          Status
	CachePath       string // "<cacheDir>/download/by-url-sha256/<SHA256_OF_URL>/data"
	LastModified    time.Time
	ContentType     string
	ValidatedDigest bool
}

type options struct {
	cacheDir       string // default: empty (disables caching)
	description    string // default: url
	expectedSHA256 string
}

type Opt func(*options) error

func (o *options) apply(opts []Opt) error {
	for _, f := range opts {
		if err := f(o); err != nil {
			return err
		}
	}
	return nil
}

// WithCache caches downloads under the sweagent subdirectory of the user
// cache directory.
func WithCache() Opt {
	return func(o *options) error {
		ucd, err := os.UserCacheDir()
		if err != nil {
			return err
		}
		return WithCacheDir(filepath.Join(ucd, "sweagent"))(o)
	}
}

// WithCacheDir caches downloads under the specified dir. An empty value
// disables caching.
func WithCacheDir(cacheDir string) Opt {
	return func(o *options) error {
		o.cacheDir = cacheDir
		return nil
	}
}

// WithDescription names the transfer in progress output.
func WithDescription(description string) Opt {
	return func(o *options) error {
		o.description = description
		return nil
	}
}

// WithExpectedSHA256 verifies the payload against a hex-encoded SHA-256
// digest. The digest is not verified when it is empty or when the local
// target path already exists.
func WithExpectedSHA256(digestHex string) Opt {
	return func(o *options) error {
		if digestHex != "" {
			if len(digestHex) != sha256.Size*2 {
				return fmt.Errorf("expected a %d-character hex digest, got %q", sha256.Size*2, digestHex)
			}
			if _, err := hex.DecodeString(digestHex); err != nil {
				return fmt.Errorf("invalid hex digest %q: %w", digestHex, err)
			}
			digestHex = strings.ToLower(digestHex)
		}
		o.expectedSHA256 = digestHex
		return nil
	}
}

// Download fetches remote into local. With caching enabled the payload
// lands in the cache and is copied out, so later calls for the same URL
// are served from disk. When the local path already exists, Download
// returns StatusSkipped without touching the network. The local path can
// be an empty string for caching-only mode.
func Download(ctx context.Context, local, remote string, opts ...Opt) (*Result, error) {
	var o options
	if err := o.apply(opts); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(remote, "https://") && !strings.HasPrefix(remote, "http://") {
		return nil, fmt.Errorf("unsupported URL %q", remote)
	}

	var localPath string
	if local == "" {
		if o.cacheDir == "" {
			return nil, errors.New("caching-only mode requires the cache directory to be specified")
		}
	} else {
		var err error
		localPath, err = localpathutil.Expand(local)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(localPath); err == nil {
			logrus.Debugf("file %q already exists, skipping downloading from %q (and skipping digest validation)", localPath, remote)
			return &Result{Status: StatusSkipped}, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return nil, err
		}
	}

	if o.cacheDir == "" {
		if err := downloadHTTP(ctx, localPath, "", "", remote, o.description, o.expectedSHA256); err != nil {
			return nil, err
		}
		return &Result{Status: StatusDownloaded, ValidatedDigest: o.expectedSHA256 != ""}, nil
	}

	shad := cacheDirectoryPath(o.cacheDir, remote)
	if err := os.MkdirAll(shad, 0o700); err != nil {
		return nil, err
	}
	var res *Result
	err := lockutil.WithDirLock(shad, func() error {
		var err error
		res, err = getCached(localPath, remote, o)
		if err != nil || res != nil {
			return err
		}
		res, err = fetch(ctx, localPath, remote, o)
		return err
	})
	return res, err
}

// getCached serves localPath from the cache, or returns nil, nil when the
// cache has no entry for remote. A cached payload is trusted once present:
// the endpoints cached here (dataset row pages, fixed-tag archives) do not
// mutate in place, so there is no revalidation round trip.
func getCached(localPath, remote string, o options) (*Result, error) {
	shad := cacheDirectoryPath(o.cacheDir, remote)
	shadData := filepath.Join(shad, "data")
	if _, err := os.Stat(shadData); err != nil {
		return nil, nil
	}
	logrus.Debugf("file %q is cached as %q", localPath, shadData)
	if err := validateCachedSHA256(shad, o.expectedSHA256); err != nil {
		return nil, err
	}
	if localPath != "" {
		if err := fs.CopyFile(localPath, shadData); err != nil {
			return nil, err
		}
	}
	return &Result{
		Status:          StatusUsedCache,
		CachePath:       shadData,
		LastModified:    readTime(filepath.Join(shad, "time")),
		ContentType:     readFile(filepath.Join(shad, "type")),
		ValidatedDigest: o.expectedSHA256 != "",
	}, nil
}

// fetch downloads remote into the cache and copies the entry to localPath.
func fetch(ctx context.Context, localPath, remote string, o options) (*Result, error) {
	shad := cacheDirectoryPath(o.cacheDir, remote)
	shadData := filepath.Join(shad, "data")
	shadTime := filepath.Join(shad, "time")
	shadType := filepath.Join(shad, "type")
	if err := os.WriteFile(filepath.Join(shad, "url"), []byte(remote), 0o644); err != nil {
		return nil, err
	}
	if err := downloadHTTP(ctx, shadData, shadTime, shadType, remote, o.description, o.expectedSHA256); err != nil {
		return nil, err
	}
	if o.expectedSHA256 != "" {
		if err := os.WriteFile(filepath.Join(shad, "sha256.digest"), []byte(o.expectedSHA256), 0o644); err != nil {
			return nil, err
		}
	}
	if localPath != "" {
		// The digest was already verified while writing the cache entry.
		if err := fs.CopyFile(localPath, shadData); err != nil {
			return nil, err
		}
	}
	return &Result{
		Status:          StatusDownloaded,
		CachePath:       shadData,
		LastModified:    readTime(shadTime),
		ContentType:     readFile(shadType),
		ValidatedDigest: o.expectedSHA256 != "",
	}, nil
}

// Cached returns the cache entry for remote, or an error when the cache
// has none.
func Cached(remote string, opts ...Opt) (*Result, error) {
	var o options
	if err := o.apply(opts); err != nil {
		return nil, err
	}
	if o.cacheDir == "" {
		return nil, errors.New("caching-only mode requires the cache directory to be specified")
	}

	shad := cacheDirectoryPath(o.cacheDir, remote)
	shadData := filepath.Join(shad, "data")
	if _, err := os.Stat(shadData); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(shad, 0o700); err != nil {
		return nil, err
	}
	if err := lockutil.WithDirLock(shad, func() error {
		return validateCachedSHA256(shad, o.expectedSHA256)
	}); err != nil {
		return nil, err
	}
	return &Result{
		Status:          StatusUsedCache,
		CachePath:       shadData,
		LastModified:    readTime(filepath.Join(shad, "time")),
		ContentType:     readFile(filepath.Join(shad, "type")),
		ValidatedDigest: o.expectedSHA256 != "",
	}, nil
}

// cacheDirectoryPath returns the cache subdirectory for remote.
//   - "url" file contains the url
//   - "data" file contains the payload
//   - "time" file contains the Last-Modified header
//   - "type" file contains the Content-Type header
//   - "sha256.digest" file contains the verified digest, when one was given
func cacheDirectoryPath(cacheDir, remote string) string {
	return filepath.Join(cacheDir, "download", "by-url-sha256", CacheKey(remote))
}

// CacheKey returns the key for a cache entry of the remote URL.
func CacheKey(remote string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(remote)))
}

// validateCachedSHA256 compares the recorded digest of a cache entry with
// the expected one, hashing the payload only when the entry predates
// digest recording.
func validateCachedSHA256(shad, expected string) error {
	if expected == "" {
		return nil
	}
	if b, err := os.ReadFile(filepath.Join(shad, "sha256.digest")); err == nil {
		cached := strings.TrimSpace(string(b))
		if cached != expected {
			return fmt.Errorf("expected digest %q, got %q", expected, cached)
		}
		return nil
	}
	return validateLocalFileSHA256(filepath.Join(shad, "data"), expected)
}

func validateLocalFileSHA256(localPath, expected string) error {
	if expected == "" {
		return nil
	}
	r, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer r.Close()
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return err
	}
	actual := hex.EncodeToString(h.Sum(nil))
	if actual != expected {
		return fmt.Errorf("expected digest %q, got %q", expected, actual)
	}
	return nil
}

func downloadHTTP(ctx context.Context, localPath, lastModifiedPath, contentTypePath, url, description, expectedSHA256 string) error {
	if localPath == "" {
		return errors.New("downloadHTTP: got empty localPath")
	}
	logrus.Debugf("downloading %q into %q", url, localPath)

	resp, err := httpclientutil.Get(ctx, http.DefaultClient, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if lastModifiedPath != "" {
		lm := resp.Header.Get("Last-Modified")
		if err := os.WriteFile(lastModifiedPath, []byte(lm), 0o644); err != nil {
			return err
		}
	}
	if contentTypePath != "" {
		ct := resp.Header.Get("Content-Type")
		if err := os.WriteFile(contentTypePath, []byte(ct), 0o644); err != nil {
			return err
		}
	}

	bar, err := progressbar.New(resp.ContentLength)
	if err != nil {
		return err
	}
	if HideProgress {
		bar.Set(pb.Static, true)
	}

	localPathTmp := perProcessTempfile(localPath)
	fileWriter, err := os.Create(localPathTmp)
	if err != nil {
		return err
	}
	defer fileWriter.Close()
	defer os.RemoveAll(localPathTmp)

	writers := []io.Writer{fileWriter}
	var hasher hash.Hash
	if expectedSHA256 != "" {
		hasher = sha256.New()
		writers = append(writers, hasher)
	}

	if !HideProgress {
		if description == "" {
			description = url
		}
		// stderr corresponds to the progress bar output
		fmt.Fprintf(os.Stderr, "Downloading %s\n", description)
	}
	bar.Start()
	if _, err := io.Copy(io.MultiWriter(writers...), bar.NewProxyReader(resp.Body)); err != nil {
		return err
	}
	bar.Finish()

	if hasher != nil {
		actual := hex.EncodeToString(hasher.Sum(nil))
		if actual != expectedSHA256 {
			return fmt.Errorf("expected digest %q, got %q", expectedSHA256, actual)
		}
	}

	if err := fileWriter.Sync(); err != nil {
		return err
	}
	if err := fileWriter.Close(); err != nil {
		return err
	}
	return os.Rename(localPathTmp, localPath)
}

var tempfileCount atomic.Uint64

// Parallel downloads each write through a unique temporary file; renaming
// it over the final path is atomic on posix.
func perProcessTempfile(path string) string {
	return fmt.Sprintf("%s.tmp.%d.%d", path, os.Getpid(), tempfileCount.Add(1))
}

func readFile(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(b)
}

func readTime(path string) time.Time {
	t, err := time.Parse(http.TimeFormat, readFile(path))
	if err != nil {
		return time.Time{}
	}
	return t
}
