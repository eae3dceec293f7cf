/*
 * SPDX-FileCopyrightText: Copyright (c) 2025 NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * SPDX-License-Identifier: Apache-2.0
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"emperror.dev/errors"
	"github.com/BurntSushi/toml"

	"github.com/rajjj/narwhal-world/api/v1alpha1"
	"github.com/rajjj/narwhal-world/internal/consts"
	"github.com/rajjj/narwhal-world/internal/logging"
)

// Flow is a flow package as found on disk: <workDir>/<script>/pyproject.toml.
type Flow struct {
	ScriptName   string
	Dir          string
	ManifestPath string
	Manifest     *v1alpha1.FlowManifest
	// nil unless deploy-json is enabled
	DeployFile *v1alpha1.DeployFile
}

// EntrypointPath is the flow module relative to Dir.
func (f *Flow) EntrypointPath() string {
	return filepath.ToSlash(filepath.Join(f.ScriptName, f.ScriptName+".py"))
}

func (f *Flow) DeploymentFilePath() string {
	return filepath.Join(f.Dir, f.ScriptName+consts.DeploymentFileSuffix)
}

// ScriptName derives the importable script name from a project name.
func ScriptName(projectName string) string {
	return strings.ReplaceAll(strings.TrimSpace(projectName), "-", "_")
}

func Load(ctx context.Context, workDir, scriptName string) (*Flow, error) {
	logs := logging.FromContext(ctx)

	if scriptName == "" {
		return nil, errors.New("script name is required")
	}

	dir := filepath.Join(workDir, scriptName)
	flow := &Flow{
		ScriptName:   scriptName,
		Dir:          dir,
		ManifestPath: filepath.Join(dir, consts.ManifestFileName),
	}

	m, undecoded, err := LoadManifest(flow.ManifestPath)
	if err != nil {
		return nil, err
	}
	flow.Manifest = m

	for _, key := range undecoded {
		if strings.HasPrefix(key, consts.ManifestBuildTable+".") {
			logs.WithField("key", key).Warn("unknown key in build table is ignored")
		}
	}

	if m.Project.Name != "" && ScriptName(m.Project.Name) != scriptName {
		logs.Warnf("project name %q does not match script name %q", m.Project.Name, scriptName)
	}

	if _, err := os.Stat(filepath.Join(dir, flow.EntrypointPath())); err != nil {
		return nil, errors.Wrapf(err, "flow not found at %s, check the flow module name", filepath.Join(dir, flow.EntrypointPath()))
	}

	if m.Build != nil && m.Build.DeployJSON.Enabled {
		path := m.Build.DeployJSON.Path
		if path == "" {
			path = consts.DeployFileName
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		flow.DeployFile, err = LoadDeployFile(path)
		if err != nil {
			return nil, err
		}
	}

	return flow, nil
}

// LoadManifest decodes pyproject.toml and reports the keys it did not map.
// A manifest without a build table gets an empty one.
func LoadManifest(path string) (*v1alpha1.FlowManifest, []string, error) {
	m := &v1alpha1.FlowManifest{}
	meta, err := toml.DecodeFile(path, m)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "load manifest %s", path)
	}
	if m.Build == nil {
		m.Build = &v1alpha1.FlowBuildSpec{}
	}
	if m.Project.Version == "" {
		m.Project.Version = consts.DefaultProjectVersion
	}

	undecoded := make([]string, 0)
	for _, key := range meta.Undecoded() {
		undecoded = append(undecoded, key.String())
	}
	return m, undecoded, nil
}

func LoadDeployFile(path string) (*v1alpha1.DeployFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read deploy file %s", path)
	}
	return ParseDeployFile(content)
}

// ParseDeployFile decodes a deploy file, which must be an object with a
// "deploy" list.
func ParseDeployFile(content []byte) (*v1alpha1.DeployFile, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, errors.Wrap(err, "decode deploy file")
	}
	deploy, ok := raw["deploy"]
	if !ok || bytes.Equal(bytes.TrimSpace(deploy), []byte("null")) {
		return nil, errors.New("deploy file must contain the key \"deploy\"")
	}

	file := &v1alpha1.DeployFile{}
	if err := json.Unmarshal(deploy, &file.Deploy); err != nil {
		return nil, errors.Wrap(err, "decode deploy entries")
	}
	return file, nil
}
