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

package resolver

import (
	"context"
	"fmt"
	"strings"

	"emperror.dev/errors"

	"github.com/rajjj/narwhal-world/api/v1alpha1"
	"github.com/rajjj/narwhal-world/internal/consts"
	"github.com/rajjj/narwhal-world/internal/logging"
)

type DeploymentSource string

const (
	DeploymentSourceJSON DeploymentSource = "deploy-json"
	DeploymentSourceList DeploymentSource = "deploy-list"
	DeploymentSourceNum  DeploymentSource = "deploy-num"
)

// DeploymentSourceOf reports which key decides the deployments:
// deploy-json, then deploy-list, then deploy-num.
func DeploymentSourceOf(build *v1alpha1.FlowBuildSpec) DeploymentSource {
	switch {
	case build.DeployJSON.Enabled:
		return DeploymentSourceJSON
	case len(build.DeployList) > 0:
		return DeploymentSourceList
	default:
		return DeploymentSourceNum
	}
}

// DefaultDeploymentNames returns the generated names for n deployments.
func DefaultDeploymentNames(scriptName string, n int) []string {
	base := scriptName + consts.DeploymentNameSuffix
	if n < 1 {
		return nil
	}
	if n == 1 {
		return []string{base}
	}
	names := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		names = append(names, fmt.Sprintf("%s_%d", base, i))
	}
	return names
}

// ResolveDeployments expands the build table into ordered deployment specs,
// each carrying a copy of res.
func ResolveDeployments(ctx context.Context, scriptName string, build *v1alpha1.FlowBuildSpec, deployFile *v1alpha1.DeployFile, res v1alpha1.ResourceRequirements) ([]v1alpha1.DeploymentSpec, error) {
	logs := logging.FromContext(ctx)

	source := DeploymentSourceOf(build)
	ignored := make([]string, 0, 2)
	if source == DeploymentSourceJSON && len(build.DeployList) > 0 {
		ignored = append(ignored, string(DeploymentSourceList))
	}
	if source != DeploymentSourceNum && build.DeployNum != nil {
		ignored = append(ignored, string(DeploymentSourceNum))
	}
	if len(ignored) > 0 {
		logs.WithField("source", source).Warnf("%s overrides %s", source, strings.Join(ignored, ", "))
	}

	var specs []v1alpha1.DeploymentSpec
	var errs error

	switch source {
	case DeploymentSourceJSON:
		if deployFile == nil {
			return nil, fieldError(string(source), build.DeployJSON.Path, "is enabled but no deploy file was loaded")
		}
		if len(deployFile.Deploy) == 0 {
			return nil, fieldError(string(source), build.DeployJSON.Path, "deploy file lists no deployments")
		}
		for i, entry := range deployFile.Deploy {
			field := fmt.Sprintf("%s[%d]", source, i)
			if strings.TrimSpace(entry.Name) == "" {
				errs = errors.Append(errs, fieldError(field+".name", nil, "is required"))
				continue
			}
			if err := ValidateSchedule(entry.Schedule); err != nil {
				errs = errors.Append(errs, fieldError(field+".schedule", nil, "%s", err.Error()))
				continue
			}
			specs = append(specs, v1alpha1.DeploymentSpec{
				Name:       entry.Name,
				Schedule:   entry.Schedule,
				Parameters: entry.Parameters,
			})
		}

	case DeploymentSourceList:
		for i, name := range build.DeployList {
			if strings.TrimSpace(name) == "" {
				errs = errors.Append(errs, fieldError(fmt.Sprintf("%s[%d]", source, i), nil, "must not be empty"))
				continue
			}
			specs = append(specs, v1alpha1.DeploymentSpec{Name: name})
		}

	case DeploymentSourceNum:
		n := int64(consts.DefaultDeployNum)
		if build.DeployNum != nil {
			n = *build.DeployNum
		}
		if n < 0 {
			return nil, fieldError(string(source), n, "must not be negative")
		}
		if n > consts.MaxDeployNum {
			return nil, fieldError(string(source), n, "must be at most %d", consts.MaxDeployNum)
		}
		if n == 0 {
			n = consts.DefaultDeployNum
		}
		for _, name := range DefaultDeploymentNames(scriptName, int(n)) {
			specs = append(specs, v1alpha1.DeploymentSpec{Name: name})
		}
	}

	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		if _, ok := seen[spec.Name]; ok {
			errs = errors.Append(errs, fieldError(string(source), spec.Name, "deployment names must be unique"))
		}
		seen[spec.Name] = struct{}{}
	}

	if errs != nil {
		return nil, errs
	}

	for i := range specs {
		specs[i].Resources = v1alpha1.ResourceRequirements{
			Preset: res.Preset,
			Limits: res.Limits.DeepCopy(),
		}
	}
	return specs, nil
}
