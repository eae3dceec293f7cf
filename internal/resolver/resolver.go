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

// Package resolver turns a flow's build table into its deployment plan.
// It is deterministic and does no I/O; a configuration error returns no
// plan at all.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"dario.cat/mergo"
	"emperror.dev/errors"
	"github.com/sirupsen/logrus"

	"github.com/rajjj/narwhal-world/api/v1alpha1"
	"github.com/rajjj/narwhal-world/internal/consts"
	"github.com/rajjj/narwhal-world/internal/infra"
	"github.com/rajjj/narwhal-world/internal/logging"
)

var (
	supportedPyVers     = []string{"3.9", "3.11", "3.13"}
	supportedClouds     = []v1alpha1.CloudVendor{v1alpha1.CloudVendorAWS, v1alpha1.CloudVendorGCP, v1alpha1.CloudVendorAzure}
	supportedRegions    = []v1alpha1.Region{v1alpha1.RegionUS, v1alpha1.RegionEU}
	supportedExtensions = []string{consts.ExtensionSlam}
)

type ResolveOption struct {
	ScriptName          string
	ProjectVersion      string
	OrchestratorVersion string
	Build               *v1alpha1.FlowBuildSpec
	// loaded deploy file, required when deploy-json is enabled
	DeployFile *v1alpha1.DeployFile
	// cloud of an explicitly given registry, empty when none was given
	RegistryCloud v1alpha1.CloudVendor
}

func defaultBuildSpec() v1alpha1.FlowBuildSpec {
	return v1alpha1.FlowBuildSpec{
		Amount: consts.DefaultAmount,
		PyVer:  consts.DefaultPyVer,
		Infra:  consts.DefaultInfra,
		Region: consts.DefaultRegion,
	}
}

// Resolve validates the whole build table and returns the flow's deployment
// plan. All rejected keys are reported together; any rejection means no plan.
func Resolve(ctx context.Context, opt ResolveOption) (*v1alpha1.FlowDeployment, error) {
	logs := logging.FromContext(ctx).WithField("script", opt.ScriptName)
	ctx = logging.IntoContext(ctx, logs)

	if strings.TrimSpace(opt.ScriptName) == "" {
		return nil, fieldError("script-name", nil, "is required")
	}

	build := v1alpha1.FlowBuildSpec{}
	if opt.Build != nil {
		build = *opt.Build
	}
	if err := mergo.Merge(&build, defaultBuildSpec()); err != nil {
		return nil, errors.Wrap(err, "apply build defaults")
	}

	warnDeprecated(logs, &build)

	var errs error

	infraType := infra.Normalize(v1alpha1.InfraType(normalize(build.Infra)))
	if !infra.IsKnown(infraType) {
		errs = errors.Append(errs, fieldError("infra", build.Infra, "must be one of giver, ecs, gke, narwhal"))
	}

	cloud, err := resolveCloud(build.Cloud, opt.RegistryCloud)
	errs = errors.Append(errs, err)

	region := v1alpha1.Region(normalize(build.Region))
	if !contains(supportedRegions, region) {
		errs = errors.Append(errs, fieldError("region", build.Region, "must be one of %s", joinValues(supportedRegions)))
	}

	pyver := strings.TrimSpace(build.PyVer)
	if !contains(supportedPyVers, pyver) {
		errs = errors.Append(errs, fieldError("pyver", build.PyVer, "must be one of %s", joinValues(supportedPyVers)))
	}

	extensions := make([]string, 0, len(build.Extensions))
	for _, ext := range build.Extensions {
		ext = normalize(ext)
		if !contains(supportedExtensions, ext) {
			errs = errors.Append(errs, fieldError("nps-ext", ext, "must be one of %s", joinValues(supportedExtensions)))
			continue
		}
		if !contains(extensions, ext) {
			extensions = append(extensions, ext)
		}
	}

	var res v1alpha1.ResourceRequirements
	if infra.IsKnown(infraType) {
		res, err = ResolveResources(ctx, &build, infraType)
		errs = errors.Append(errs, err)
	}

	deployments, err := ResolveDeployments(ctx, opt.ScriptName, &build, opt.DeployFile, res)
	errs = errors.Append(errs, err)

	if errs != nil {
		return nil, errs
	}

	projectVersion := opt.ProjectVersion
	if projectVersion == "" {
		projectVersion = consts.DefaultProjectVersion
	}

	flow := &v1alpha1.FlowDeployment{
		ScriptName:  opt.ScriptName,
		Version:     fmt.Sprintf("%s-prefect-%s", projectVersion, opt.OrchestratorVersion),
		Infra:       infraType,
		Cloud:       cloud,
		Region:      region,
		PyVer:       pyver,
		CustomImage: build.CustomImage,
		Extensions:  extensions,
		Resources:   res,
		WorkPool:    infra.WorkPoolName(infraType, cloud, region),
		WorkQueue:   infra.QueueName(opt.ScriptName),
		Deployments: deployments,
	}

	logs.WithField("deployments", len(deployments)).Debugf("resolved %s deployment plan", infraType)
	return flow, nil
}

func resolveCloud(configured string, registryCloud v1alpha1.CloudVendor) (v1alpha1.CloudVendor, error) {
	cloud := v1alpha1.CloudVendor(normalize(configured))
	if cloud != "" && !contains(supportedClouds, cloud) {
		return "", fieldError("cloud", configured, "must be one of %s", joinValues(supportedClouds))
	}
	if registryCloud != "" {
		if cloud != "" && cloud != registryCloud {
			return "", fieldError("cloud", configured, "conflicts with the %s registry given on the command line", registryCloud)
		}
		return registryCloud, nil
	}
	if cloud == "" {
		cloud = consts.DefaultCloud
	}
	return cloud, nil
}

func warnDeprecated(logs logrus.FieldLogger, build *v1alpha1.FlowBuildSpec) {
	if build.SkipDeploy != nil {
		logs.WithField("key", "skip-deploy").Warn(consts.DeprecationWarningNote)
	}
	switch normalize(build.Workspace) {
	case "":
	case consts.DeprecatedWorkspace:
		logs.WithField("key", "workspace").Warnf("workspace %q is deprecated, deploying to %s", build.Workspace, consts.DefaultWorkspace)
	default:
		logs.WithField("key", "workspace").Warn(consts.DeprecationWarningNote)
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, string(v))
	}
	return strings.Join(parts, ", ")
}
