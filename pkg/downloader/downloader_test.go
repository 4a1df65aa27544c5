// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package downloader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"gotest.tools/v3/assert"
)

func TestMain(m *testing.M) {
	HideProgress = true
	os.Exit(m.Run())
}

var testPayload = []byte("{\"rows\": [], \"num_rows_total\": 0}\n")

func testDigest() string {
	sum := sha256.Sum256(testPayload)
	return hex.EncodeToString(sum[:])
}

// payloadServer serves testPayload and counts requests, so cache behavior
// is observable.
func payloadServer(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(testPayload)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestDownloadWithoutCache(t *testing.T) {
	srv, _ := payloadServer(t)
	ctx := context.Background()

	localPath := filepath.Join(t.TempDir(), "data.json")
	r, err := Download(ctx, localPath, srv.URL)
	assert.NilError(t, err)
	assert.Equal(t, r.Status, StatusDownloaded)

	got, err := os.ReadFile(localPath)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, testPayload)

	// download again, the existing file short-circuits
	r, err = Download(ctx, localPath, srv.URL)
	assert.NilError(t, err)
	assert.Equal(t, r.Status, StatusSkipped)
}

func TestDownloadDigest(t *testing.T) {
	srv, _ := payloadServer(t)
	ctx := context.Background()

	wrongDigest := CacheKey("not the payload")
	_, err := Download(ctx, filepath.Join(t.TempDir(), "x"), srv.URL, WithExpectedSHA256(wrongDigest))
	assert.ErrorContains(t, err, "expected digest")

	r, err := Download(ctx, filepath.Join(t.TempDir(), "x"), srv.URL, WithExpectedSHA256(testDigest()))
	assert.NilError(t, err)
	assert.Equal(t, r.Status, StatusDownloaded)
	assert.Equal(t, r.ValidatedDigest, true)

	_, err = Download(ctx, filepath.Join(t.TempDir(), "x"), srv.URL, WithExpectedSHA256("zz"))
	assert.ErrorContains(t, err, "hex digest")
}

func TestDownloadWithCache(t *testing.T) {
	srv, hits := payloadServer(t)
	ctx := context.Background()
	cacheDir := filepath.Join(t.TempDir(), "cache")

	localPath := filepath.Join(t.TempDir(), "data.json")
	r, err := Download(ctx, localPath, srv.URL, WithExpectedSHA256(testDigest()), WithCacheDir(cacheDir))
	assert.NilError(t, err)
	assert.Equal(t, r.Status, StatusDownloaded)

	r, err = Download(ctx, localPath, srv.URL, WithExpectedSHA256(testDigest()), WithCacheDir(cacheDir))
	assert.NilError(t, err)
	assert.Equal(t, r.Status, StatusSkipped)

	localPath2 := localPath + "-2"
	r, err = Download(ctx, localPath2, srv.URL, WithExpectedSHA256(testDigest()), WithCacheDir(cacheDir))
	assert.NilError(t, err)
	assert.Equal(t, r.Status, StatusUsedCache)
	assert.Equal(t, r.ContentType, "application/json")

	got, err := os.ReadFile(localPath2)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, testPayload)

	assert.Equal(t, hits.Load(), int64(1), "expected exactly one network fetch")
}

func TestDownloadCachingOnly(t *testing.T) {
	srv, _ := payloadServer(t)
	ctx := context.Background()

	_, err := Download(ctx, "", srv.URL)
	assert.ErrorContains(t, err, "cache directory to be specified")

	cacheDir := filepath.Join(t.TempDir(), "cache")
	r, err := Download(ctx, "", srv.URL, WithCacheDir(cacheDir))
	assert.NilError(t, err)
	assert.Equal(t, r.Status, StatusDownloaded)

	r, err = Download(ctx, "", srv.URL, WithCacheDir(cacheDir))
	assert.NilError(t, err)
	assert.Equal(t, r.Status, StatusUsedCache)

	got, err := os.ReadFile(r.CachePath)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, testPayload)
}

func TestCached(t *testing.T) {
	srv, _ := payloadServer(t)
	ctx := context.Background()

	_, err := Cached(srv.URL)
	assert.ErrorContains(t, err, "cache directory to be specified")

	cacheDir := filepath.Join(t.TempDir(), "cache")
	_, err = Cached(srv.URL, WithCacheDir(cacheDir))
	assert.ErrorContains(t, err, "no such file")

	_, err = Download(ctx, "", srv.URL, WithExpectedSHA256(testDigest()), WithCacheDir(cacheDir))
	assert.NilError(t, err)

	r, err := Cached(srv.URL, WithExpectedSHA256(testDigest()), WithCacheDir(cacheDir))
	assert.NilError(t, err)
	assert.Equal(t, r.Status, StatusUsedCache)
	assert.Assert(t, strings.HasPrefix(r.CachePath, cacheDir), "expected %s under %s", r.CachePath, cacheDir)

	_, err = Cached(srv.URL, WithExpectedSHA256(CacheKey("other")), WithCacheDir(cacheDir))
	assert.ErrorContains(t, err, "expected digest")
}

func TestDownloadRejectsNonHTTP(t *testing.T) {
	_, err := Download(context.Background(), filepath.Join(t.TempDir(), "x"), "ftp://example.com/file")
	assert.ErrorContains(t, err, "unsupported URL")
}

func TestCacheKey(t *testing.T) {
	k1 := CacheKey("https://example.com/a")
	k2 := CacheKey("https://example.com/b")
	assert.Equal(t, len(k1), 64)
	assert.Assert(t, k1 != k2)
	assert.Equal(t, k1, CacheKey("https://example.com/a"))
}
