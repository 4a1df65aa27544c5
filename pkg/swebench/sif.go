// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package swebench

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/sweagent-dev/sweagent/pkg/apptainer"
	"github.com/sweagent-dev/sweagent/pkg/localpathutil"
)

// DefaultImagesDir is where SIF images land unless a directory is given.
const DefaultImagesDir = "images"

// SIFPath returns the path the instance's SIF image occupies under
// imagesDir, whether or not it exists yet.
func SIFPath(imagesDir, instanceID string) (string, error) {
	if imagesDir == "" {
		imagesDir = DefaultImagesDir
	}
	dir, err := localpathutil.Expand(imagesDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, registryCompatibleID(instanceID)+".sif"), nil
}

// EnsureSIF returns the path of the instance's SIF image under imagesDir,
// pulling and converting the Docker image when the file does not exist
// yet. Pulls can take several minutes depending on the image size.
func EnsureSIF(ctx context.Context, instanceID, imagesDir string) (string, error) {
	sifPath, err := SIFPath(imagesDir, instanceID)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(sifPath); err == nil {
		logrus.Debugf("SIF image %q already exists, skipping pull", sifPath)
		return sifPath, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(sifPath), 0o755); err != nil {
		return "", err
	}
	inst := Instance{InstanceID: instanceID}
	if err := apptainer.Pull(ctx, sifPath, "docker://"+inst.ImageName()); err != nil {
		return "", err
	}
	return sifPath, nil
}
