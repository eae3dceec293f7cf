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

package controller

import (
	"context"
	"path/filepath"
	"strings"

	"emperror.dev/errors"
	"github.com/sirupsen/logrus"

	"github.com/rajjj/narwhal-world/api/nps/conversion"
	"github.com/rajjj/narwhal-world/api/v1alpha1"
	"github.com/rajjj/narwhal-world/internal/buildenv"
	"github.com/rajjj/narwhal-world/internal/config"
	"github.com/rajjj/narwhal-world/internal/consts"
	"github.com/rajjj/narwhal-world/internal/controller_common"
	"github.com/rajjj/narwhal-world/internal/deployfile"
	"github.com/rajjj/narwhal-world/internal/image"
	"github.com/rajjj/narwhal-world/internal/infra"
	"github.com/rajjj/narwhal-world/internal/logging"
	"github.com/rajjj/narwhal-world/internal/manifest"
	"github.com/rajjj/narwhal-world/internal/resolver"
)

type Request struct {
	ScriptName string
	WorkDir    string
	// registry given on the command line, overrides the cloud's registry
	Registry        string
	DryRun          bool
	CheckImage      bool
	ManifestChanged bool
}

// Plan is everything the deployer derived for a flow before touching disk or network.
type Plan struct {
	Flow         *manifest.Flow
	Deployment   *v1alpha1.FlowDeployment
	Registry     image.Registry
	Image        string
	JobVariables map[string]interface{}
}

type DeploymentStatus struct {
	Name   string
	ID     string
	Result controller_common.SyncResult
}

type Result struct {
	Plan           *Plan
	DeploymentFile string
	Submitted      bool
	// filled in api submit mode, in submission order
	Deployments []DeploymentStatus
}

type FlowDeploymentReconciler struct {
	Orchestrator *config.OrchestratorConfig
	Registries   *config.RegistryConfig
	Deployer     *config.DeployerConfig
	Client       OrchestratorClient
	Runner       CommandRunner
	ImageChecker ImageChecker
	Recorder     EventRecorder
}

// Plan loads and resolves the flow. Nothing is written.
func (r *FlowDeploymentReconciler) Plan(ctx context.Context, req Request) (*Plan, error) {
	logs := logging.FromContext(ctx)

	flow, err := manifest.Load(ctx, req.WorkDir, req.ScriptName)
	if err != nil {
		return nil, errors.Wrapf(err, "load flow %s", req.ScriptName)
	}

	var registryCloud v1alpha1.CloudVendor
	if req.Registry != "" {
		registryCloud = image.CloudFromRegistry(req.Registry)
	}

	deployment, err := resolver.Resolve(ctx, resolver.ResolveOption{
		ScriptName:          flow.ScriptName,
		ProjectVersion:      flow.Manifest.Project.Version,
		OrchestratorVersion: r.Orchestrator.Version,
		Build:               flow.Manifest.Build,
		DeployFile:          flow.DeployFile,
		RegistryCloud:       registryCloud,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "resolve flow %s", flow.ScriptName)
	}

	var registry image.Registry
	if req.Registry != "" {
		registry = image.ExplicitRegistry(req.Registry)
	} else {
		registry, err = image.SelectRegistry(deployment.Cloud, r.Registries)
		if err != nil {
			return nil, errors.Wrapf(err, "select registry for %s", deployment.Cloud)
		}
	}
	imageName := image.Name(registry.Host, deployment)

	jobVariables, err := infra.JobVariables(deployment, imageName)
	if err != nil {
		return nil, errors.Wrapf(err, "render %s job variables", deployment.Infra)
	}

	logs.WithFields(logrus.Fields{
		"infra":       deployment.Infra,
		"work_pool":   deployment.WorkPool,
		"image":       imageName,
		"deployments": strings.Join(deployment.DeploymentNames(), ","),
	}).Info("resolved deployment plan")

	return &Plan{
		Flow:         flow,
		Deployment:   deployment,
		Registry:     registry,
		Image:        imageName,
		JobVariables: jobVariables,
	}, nil
}

// WriteBuildEnv writes the variables the image build sources into the flow directory.
func (r *FlowDeploymentReconciler) WriteBuildEnv(ctx context.Context, req Request) (string, error) {
	plan, err := r.Plan(ctx, req)
	if err != nil {
		return "", err
	}
	baseImage, err := image.BaseImageFor(plan.Deployment.PyVer, r.Registries)
	if err != nil {
		return "", errors.Wrap(err, "select base image")
	}

	path := filepath.Join(plan.Flow.Dir, consts.BuildEnvFileName)
	vars := buildenv.Vars(buildenv.Option{
		Flow:                plan.Deployment,
		ProjectVersion:      plan.Flow.Manifest.Project.Version,
		OrchestratorVersion: r.Orchestrator.Version,
		Registry:            plan.Registry,
		BaseImage:           baseImage,
		WorkDir:             plan.Flow.Dir,
		ManifestPath:        plan.Flow.ManifestPath,
		ManifestChanged:     req.ManifestChanged,
	})
	if err := buildenv.Write(path, vars); err != nil {
		return "", err
	}
	r.Recorder.Eventf(req.ScriptName, EventTypeNormal, "BuildEnvWritten", "Wrote %d build variables to %s", len(vars), path)
	return path, nil
}

// Reconcile deploys one flow: resolve, render, preflight, then submit every
// deployment in order. The first failure stops the run.
func (r *FlowDeploymentReconciler) Reconcile(ctx context.Context, req Request) (result Result, err error) {
	logs := logging.FromContext(ctx).WithField("script", req.ScriptName)
	ctx = logging.IntoContext(ctx, logs)

	defer func() {
		if err == nil {
			return
		}
		r.Recorder.Eventf(req.ScriptName, EventTypeWarning, "ReconcileError", "Failed to deploy flow: %v", err)
	}()

	if err = config.CheckTemplateVersion(); err != nil {
		return
	}

	r.Recorder.Eventf(req.ScriptName, EventTypeNormal, "Resolving", "Resolving deployments of %s", req.ScriptName)
	plan, err := r.Plan(ctx, req)
	if err != nil {
		return
	}
	result.Plan = plan
	flow := plan.Deployment

	err = writeCredentials(filepath.Join(plan.Flow.Dir, consts.CredFileName), Credentials{
		InfraType: infra.CredentialInfraType(flow.Infra),
		Cloud:     string(flow.Cloud),
	})
	if err != nil {
		return
	}

	file, err := deployfile.Generate(deployfile.GenerateOption{
		Flow:                flow,
		OrchestratorVersion: r.Orchestrator.Version,
		EntrypointPath:      plan.Flow.EntrypointPath(),
		JobVariables:        plan.JobVariables,
	})
	if err != nil {
		return
	}
	result.DeploymentFile = plan.Flow.DeploymentFilePath()
	if err = file.Write(result.DeploymentFile); err != nil {
		return
	}
	r.Recorder.Eventf(req.ScriptName, EventTypeNormal, "DeploymentFileWritten", "Rendered %d deployments to %s", len(flow.Deployments), result.DeploymentFile)

	if req.CheckImage {
		var exists bool
		exists, err = r.ImageChecker.Exists(ctx, plan.Image)
		if err != nil {
			err = errors.Wrapf(err, "check image %s", plan.Image)
			return
		}
		if !exists {
			err = errors.Errorf("image %s is not in the registry, build and push it first", plan.Image)
			return
		}
	}

	if req.DryRun {
		logs.WithField("deployments", strings.Join(flow.DeploymentNames(), ",")).Info("dry run, skipping submission")
		return
	}

	if err = r.buildExtensions(ctx, plan); err != nil {
		return
	}

	switch r.Deployer.SubmitMode {
	case consts.SubmitModeAPI:
		result.Deployments, err = r.submitAPI(ctx, plan)
	default:
		err = r.submitCLI(ctx, plan, result.DeploymentFile)
	}
	if err != nil {
		return
	}
	result.Submitted = true
	r.Recorder.Eventf(req.ScriptName, EventTypeNormal, "Deployed", "Deployed %s with %d deployments", flow.Version, len(flow.Deployments))
	return
}

func (r *FlowDeploymentReconciler) buildExtensions(ctx context.Context, plan *Plan) error {
	for _, ext := range plan.Deployment.Extensions {
		if ext != consts.ExtensionSlam {
			continue
		}
		logging.FromContext(ctx).WithField("command", commandLine("uv", "run", "build-slam")).Info("building slam extension")
		if err := r.Runner.Run(ctx, plan.Flow.Dir, "uv", "run", "build-slam"); err != nil {
			return errors.Wrap(err, "build slam extension")
		}
	}
	return nil
}

func (r *FlowDeploymentReconciler) submitCLI(ctx context.Context, plan *Plan, deploymentFile string) error {
	args := []string{"deploy", "--prefect-file", filepath.Base(deploymentFile), "--all"}
	logging.FromContext(ctx).WithField("command", commandLine(consts.OrchestratorCLI, args...)).Info("submitting deployments")
	r.Recorder.Eventf(plan.Flow.ScriptName, EventTypeNormal, "Submitting", "Submitting %d deployments with the %s CLI", len(plan.Deployment.Deployments), consts.OrchestratorCLI)
	return errors.Wrap(r.Runner.Run(ctx, plan.Flow.Dir, consts.OrchestratorCLI, args...), "submit deployments")
}

func (r *FlowDeploymentReconciler) submitAPI(ctx context.Context, plan *Plan) ([]DeploymentStatus, error) {
	logs := logging.FromContext(ctx)
	if r.Client == nil {
		return nil, errors.New("orchestrator client is not configured")
	}

	flowName := plan.Flow.ScriptName
	orchestratorFlow, err := r.Client.CreateFlow(ctx, flowName)
	if err != nil {
		return nil, errors.Wrapf(err, "register flow %s", flowName)
	}

	opt := conversion.DeploymentCreateOption{
		FlowID:       orchestratorFlow.ID,
		Entrypoint:   plan.Flow.EntrypointPath() + ":main",
		JobVariables: plan.JobVariables,
		PullSteps:    []map[string]interface{}{deployfile.PullStep(flowName).AsMap()},
	}

	statuses := make([]DeploymentStatus, 0, len(plan.Deployment.Deployments))
	for i := range plan.Deployment.Deployments {
		spec := &plan.Deployment.Deployments[i]
		payload := conversion.ConvertToDeploymentCreate(plan.Deployment, spec, opt)

		deployment, syncResult, err := controller_common.SyncDeployment(ctx, r.Client, flowName, payload, r.Deployer.CreateOnly)
		if err != nil {
			return statuses, errors.Wrapf(err, "sync deployment %s", spec.Name)
		}
		logs.WithFields(logrus.Fields{"deployment": spec.Name, "result": syncResult}).Info("synced deployment")
		r.Recorder.Eventf(flowName, EventTypeNormal, "Synced", "Deployment %s %s", spec.Name, syncResult)
		statuses = append(statuses, DeploymentStatus{Name: spec.Name, ID: deployment.ID, Result: syncResult})
	}
	return statuses, nil
}
