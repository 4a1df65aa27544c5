// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sweagent-dev/sweagent/pkg/auditlog"
)

type createOptions struct {
	timestamp string
}

// CreateOpt customizes a single Create call.
type CreateOpt func(*createOptions) error

// WithTimestamp pins the timestamp component of the workspace id instead
// of using the current time, keeping ids reproducible.
func WithTimestamp(timestamp string) CreateOpt {
	return func(o *createOptions) error {
		if timestamp == "" {
			return fmt.Errorf("timestamp must not be empty")
		}
		o.timestamp = timestamp
		return nil
	}
}

// Create builds a new workspace for one instance run: the directory
// skeleton, the testbed tree staged out of sifPath, and metadata.json.
// Failure of any step rolls the partially created directory back
// (best-effort) and returns an error naming the instance; the base
// directory is left as if the call never happened.
func (m *Manager) Create(ctx context.Context, instanceID, modelName, sifPath string, opts ...CreateOpt) (*Info, error) {
	var o createOptions
	for _, f := range opts {
		if err := f(&o); err != nil {
			return nil, err
		}
	}
	timestamp := o.timestamp
	if timestamp == "" {
		timestamp = time.Now().Format(TimestampLayout)
	}

	workspaceID := timestamp + "_" + sanitizeModel(modelName) + "_" + sanitizeInstance(instanceID)
	workspaceDir := filepath.Join(m.baseDir, workspaceID)
	info := &Info{
		WorkspaceDir: workspaceDir,
		TestbedDir:   filepath.Join(workspaceDir, testbedDirName),
		OutputsDir:   filepath.Join(workspaceDir, outputsDirName),
		InstanceID:   instanceID,
		ModelName:    modelName,
		Timestamp:    timestamp,
		SIFPath:      sifPath,
	}

	logrus.WithFields(logrus.Fields{
		"workspace_id": workspaceID,
		"instance_id":  instanceID,
		"model":        modelName,
	}).Info("Creating workspace")

	if err := m.populate(ctx, info, workspaceID, sifPath); err != nil {
		logrus.WithFields(logrus.Fields{
			"workspace_id": workspaceID,
			"error":        err,
		}).Error("Failed to create workspace")
		if _, statErr := os.Stat(workspaceDir); statErr == nil {
			if rmErr := os.RemoveAll(workspaceDir); rmErr != nil {
				logrus.Warnf("Failed to clean up workspace: %v", rmErr)
			}
		}
		return nil, fmt.Errorf("failed to create workspace for %s: %w", instanceID, err)
	}

	logrus.WithFields(logrus.Fields{
		"workspace_dir": info.WorkspaceDir,
		"testbed_dir":   info.TestbedDir,
	}).Info("Workspace created successfully")
	return info, nil
}

func (m *Manager) populate(ctx context.Context, info *Info, workspaceID, sifPath string) error {
	if err := os.MkdirAll(info.TestbedDir, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(info.OutputsDir, 0o755); err != nil {
		return err
	}

	if err := m.bootstrap(ctx, sifPath, info.TestbedDir); err != nil {
		return err
	}

	md := Metadata{
		InstanceID:  info.InstanceID,
		ModelName:   info.ModelName,
		Timestamp:   info.Timestamp,
		WorkspaceID: workspaceID,
		SIFPath:     portableSIFPath(sifPath),
		CreatedAt:   time.Now(),
	}
	b, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(info.WorkspaceDir, MetadataFile), b, 0o644); err != nil {
		return err
	}

	return auditlog.Append(m.auditPath, &auditlog.Event{
		Event: "workspace_created",
		Fields: map[string]any{
			"workspace_id":  workspaceID,
			"workspace_dir": info.WorkspaceDir,
			"instance_id":   info.InstanceID,
			"model":         info.ModelName,
		},
	})
}

// portableSIFPath records the image location relative to the working
// directory when the image lives under it, keeping metadata meaningful
// when a project tree is moved; anything outside stays absolute.
func portableSIFPath(sifPath string) string {
	abs, err := filepath.Abs(sifPath)
	if err != nil {
		return sifPath
	}
	cwd, err := os.Getwd()
	if err != nil {
		return abs
	}
	rel, err := filepath.Rel(cwd, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return abs
	}
	return rel
}

// sanitizeInstance flattens an instance id for use in a directory name:
// the conventional owner__repo separator collapses to a single underscore
// and path separators are replaced.
func sanitizeInstance(instanceID string) string {
	return strings.ReplaceAll(strings.ReplaceAll(instanceID, "__", "_"), "/", "_")
}

// sanitizeModel flattens a model name such as "openai/gpt-oss-20b:free"
// for use in a directory name.
func sanitizeModel(modelName string) string {
	return strings.ReplaceAll(strings.ReplaceAll(modelName, "/", "_"), ":", "_")
}
