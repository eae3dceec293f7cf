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

package buildenv

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"emperror.dev/errors"
	"github.com/ettle/strcase"
	"github.com/sergeymakinen/go-quote/unix"

	"github.com/rajjj/narwhal-world/api/v1alpha1"
	"github.com/rajjj/narwhal-world/internal/image"
)

const KeyPrefix = "SAMA_"

type Var struct {
	Key   string
	Value string
}

type Option struct {
	Flow                *v1alpha1.FlowDeployment
	ProjectVersion      string
	OrchestratorVersion string
	Registry            image.Registry
	BaseImage           image.BaseImage
	// flow directory and manifest location as seen by the image build
	WorkDir         string
	ManifestPath    string
	ManifestChanged bool
}

// EnvKey turns a camel or kebab cased name into a SAMA_ prefixed variable name.
func EnvKey(key string) string {
	return KeyPrefix + strings.ReplaceAll(strings.ToUpper(strcase.ToKebab(key)), "-", "_")
}

// Vars lists the build variables in the order they are written.
func Vars(opt Option) []Var {
	flow := opt.Flow
	tomlChange := "no"
	if opt.ManifestChanged {
		tomlChange = "yes"
	}

	raw := []struct {
		key   string
		value string
	}{
		{"imageName", flow.ScriptName},
		{"pybase", opt.BaseImage.PyVerTag},
		{"workDir", opt.WorkDir},
		{"buildTag", opt.ProjectVersion},
		{"tomlLoc", opt.ManifestPath},
		{"prefectVer", "prefect-" + opt.OrchestratorVersion},
		{"cfReg", opt.Registry.Host},
		{"regName", opt.Registry.Name},
		{"baseImage", opt.BaseImage.Image},
		{"customImage", strconv.FormatBool(flow.CustomImage)},
		{"npsExt", strings.Join(flow.Extensions, ",")},
		{"tomlChange", tomlChange},
	}

	vars := make([]Var, 0, len(raw))
	for _, v := range raw {
		vars = append(vars, Var{Key: EnvKey(v.key), Value: v.value})
	}
	return vars
}

// Render writes one KEY='value' line per variable, sourceable by a POSIX shell.
func Render(vars []Var) []byte {
	var buf bytes.Buffer
	for _, v := range vars {
		fmt.Fprintf(&buf, "%s=%s\n", v.Key, unix.SingleQuote.Quote(v.Value))
	}
	return buf.Bytes()
}

func Write(path string, vars []Var) error {
	return errors.Wrapf(os.WriteFile(path, Render(vars), 0o644), "write build env file %s", path)
}
