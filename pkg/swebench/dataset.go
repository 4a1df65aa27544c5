// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package swebench

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"slices"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/sweagent-dev/sweagent/pkg/downloader"
	"github.com/sweagent-dev/sweagent/pkg/httpclientutil"
)

const (
	SubsetLite     = "lite"
	SubsetVerified = "verified"
	SubsetFull     = "full"

	SplitDev  = "dev"
	SplitTest = "test"
)

// defaultEndpoint is the Hugging Face datasets-server rows API.
const defaultEndpoint = "https://datasets-server.huggingface.co/rows"

// pageLength is the largest page the rows API serves.
const pageLength = 100

// shuffleSeed keeps shuffled loads reproducible across runs.
const shuffleSeed = 42

// Loader fetches benchmark instances and narrows them down to the selection
// a task document asks for. Selection applies in a fixed order: filter,
// then shuffle, then slice, so slicing a shuffled load picks a reproducible
// random sample.
type Loader struct {
	// Subset selects the dataset: lite (default), verified, or full.
	Subset string
	// Split selects the dataset split: dev (default) or test.
	Split string
	// Filter keeps only instances whose id matches the pattern, anchored
	// at the start of the id. Empty and ".*" keep everything.
	Filter string
	// Slice is a "start:stop:step" specification applied after filtering
	// and shuffling. Empty keeps everything.
	Slice string
	// Shuffle reorders the filtered instances with a fixed-seed shuffle.
	Shuffle bool

	// Endpoint overrides the rows API endpoint. Defaults to the Hugging
	// Face datasets server.
	Endpoint string
	// CacheDir caches fetched pages under the given directory, so repeated
	// loads are served from disk. Empty fetches directly.
	CacheDir string
}

// DatasetName maps the subset to its Hugging Face dataset.
func (l *Loader) DatasetName() (string, error) {
	switch l.Subset {
	case "", SubsetLite:
		return "princeton-nlp/SWE-Bench_Lite", nil
	case SubsetVerified:
		return "princeton-nlp/SWE-Bench_Verified", nil
	case SubsetFull:
		return "princeton-nlp/SWE-Bench", nil
	}
	return "", fmt.Errorf("unsupported subset: %s", l.Subset)
}

// Load fetches all rows of the dataset split, then applies the filter, the
// shuffle, and the slice.
func (l *Loader) Load(ctx context.Context) ([]Instance, error) {
	dataset, err := l.DatasetName()
	if err != nil {
		return nil, err
	}
	split := l.Split
	if split == "" {
		split = SplitDev
	}

	var instances []Instance
	for offset := 0; ; {
		page, err := l.fetchPage(ctx, dataset, split, offset)
		if err != nil {
			return nil, err
		}
		for _, row := range page.Rows {
			instances = append(instances, row.Row)
		}
		offset += len(page.Rows)
		if len(page.Rows) == 0 || offset >= page.NumRowsTotal {
			break
		}
	}
	logrus.Infof("Loaded %d instances from %s (split %s)", len(instances), dataset, split)

	if l.Filter != "" && l.Filter != ".*" {
		re, err := regexp.Compile("^(?:" + l.Filter + ")")
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern %q: %w", l.Filter, err)
		}
		instances = slices.DeleteFunc(instances, func(inst Instance) bool {
			return !re.MatchString(inst.InstanceID)
		})
	}
	if l.Shuffle {
		r := rand.New(rand.NewPCG(shuffleSeed, 0))
		r.Shuffle(len(instances), func(i, j int) {
			instances[i], instances[j] = instances[j], instances[i]
		})
	}
	if l.Slice != "" {
		s, err := ParseSlice(l.Slice)
		if err != nil {
			return nil, err
		}
		instances = s.Apply(instances)
	}
	return instances, nil
}

// InstanceIDs loads the instances and returns their ids.
func (l *Loader) InstanceIDs(ctx context.Context) ([]string, error) {
	instances, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(instances))
	for _, inst := range instances {
		ids = append(ids, inst.InstanceID)
	}
	return ids, nil
}

// rowsPage is the subset of the rows API response the loader consumes.
type rowsPage struct {
	Rows []struct {
		Row Instance `json:"row"`
	} `json:"rows"`
	NumRowsTotal int `json:"num_rows_total"`
}

func (l *Loader) fetchPage(ctx context.Context, dataset, split string, offset int) (*rowsPage, error) {
	pageURL := l.pageURL(dataset, split, offset)
	b, err := l.fetchURL(ctx, pageURL, fmt.Sprintf("%s rows at offset %d", dataset, offset))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rows at offset %d of %s: %w", offset, dataset, err)
	}
	var page rowsPage
	if err := json.Unmarshal(b, &page); err != nil {
		return nil, fmt.Errorf("failed to parse rows response for %s: %w", dataset, err)
	}
	return &page, nil
}

func (l *Loader) pageURL(dataset, split string, offset int) string {
	endpoint := l.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	q := url.Values{}
	q.Set("dataset", dataset)
	q.Set("config", "default")
	q.Set("split", split)
	q.Set("offset", strconv.Itoa(offset))
	q.Set("length", strconv.Itoa(pageLength))
	return endpoint + "?" + q.Encode()
}

func (l *Loader) fetchURL(ctx context.Context, remote, description string) ([]byte, error) {
	if l.CacheDir == "" {
		resp, err := httpclientutil.Get(ctx, http.DefaultClient, remote)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		return io.ReadAll(resp.Body)
	}
	res, err := downloader.Download(ctx, "", remote,
		downloader.WithCacheDir(l.CacheDir),
		downloader.WithDescription(description))
	if err != nil {
		return nil, err
	}
	return os.ReadFile(res.CachePath)
}
