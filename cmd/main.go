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

package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"emperror.dev/errors"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	orchestratorclient "github.com/rajjj/narwhal-world/api/nps/orchestrator-client"
	"github.com/rajjj/narwhal-world/internal/config"
	"github.com/rajjj/narwhal-world/internal/consts"
	"github.com/rajjj/narwhal-world/internal/controller"
	"github.com/rajjj/narwhal-world/internal/image"
	"github.com/rajjj/narwhal-world/internal/logging"
)

const (
	actionDeploy   = "deploy"
	actionPlan     = "plan"
	actionBuildEnv = "build-env"
)

func main() {
	var scriptName string
	var registry string
	var workDir string
	var action string
	var submitMode string
	var dryRun bool
	var checkImage bool
	var createOnly bool
	var tomlChange string
	var logLevel string
	var logFormat string
	flag.CommandLine.Init(consts.DeployerName, flag.ExitOnError)
	flag.StringVar(&scriptName, "script-name", "", "Name of the flow script to deploy.")
	flag.StringVar(&registry, "reg-name", "", "Registry the flow image is pushed to. Defaults to the registry of the configured cloud.")
	flag.StringVar(&workDir, "work-dir", "", "Directory holding the flow packages. Defaults to $SAMA_WORK_DIR or the current directory.")
	flag.StringVar(&action, "action", actionDeploy, "One of deploy, plan or build-env.")
	flag.StringVar(&submitMode, "submit", "", "Submit deployments through the orchestrator cli or api. Overrides NPS_SUBMIT_MODE.")
	flag.BoolVar(&dryRun, "dry-run", false, "Render the deployment files without submitting them.")
	flag.BoolVar(&checkImage, "check-image", false, "Fail when the flow image is missing from the registry.")
	flag.BoolVar(&createOnly, "create-only", false, "Never update deployments that already exist.")
	flag.StringVar(&tomlChange, "toml-change", "no", "Whether the flow manifest changed since the last build, yes or no.")
	flag.StringVar(&logLevel, "log-level", "info", "Log level.")
	flag.StringVar(&logFormat, "log-format", "text", "Log format, text or json.")
	flag.Parse()

	runID := xid.New().String()
	logger := logging.New(logLevel, logFormat, os.Stderr)
	logs := logger.WithFields(logrus.Fields{"run_id": runID, "script": scriptName})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.IntoContext(ctx, logs)

	if err := run(ctx, runID, options{
		action:     action,
		submitMode: submitMode,
		createOnly: createOnly,
		tomlChange: tomlChange,
		logger:     logs,
		req: controller.Request{
			ScriptName:      scriptName,
			WorkDir:         workDir,
			Registry:        registry,
			DryRun:          dryRun,
			CheckImage:      checkImage,
		},
	}); err != nil {
		logs.WithError(err).Error("deployment failed")
		stop()
		os.Exit(1)
	}
}

type options struct {
	action     string
	submitMode string
	createOnly bool
	tomlChange string
	logger     logrus.FieldLogger
	req        controller.Request
}

func run(ctx context.Context, runID string, opt options) error {
	if opt.req.ScriptName == "" {
		return errors.New("-script-name is required")
	}

	changed, err := parseYesNo(opt.tomlChange)
	if err != nil {
		return errors.WrapIf(err, "-toml-change")
	}
	opt.req.ManifestChanged = changed

	if opt.req.WorkDir == "" {
		dir, err := config.GetWorkDir()
		if err != nil {
			return err
		}
		opt.req.WorkDir = dir
	}

	orchestratorConf, err := config.GetOrchestratorConfig()
	if err != nil {
		return err
	}
	opt.logger.Infof("orchestrator version: %s", orchestratorConf.Version)

	deployerConf, err := config.GetDeployerConfig()
	if err != nil {
		return err
	}
	switch opt.submitMode {
	case "":
	case consts.SubmitModeCLI, consts.SubmitModeAPI:
		deployerConf.SubmitMode = opt.submitMode
	default:
		return errors.Errorf("-submit must be %s or %s, got %q", consts.SubmitModeCLI, consts.SubmitModeAPI, opt.submitMode)
	}
	deployerConf.CreateOnly = deployerConf.CreateOnly || opt.createOnly

	dockerRegistryConf, err := config.GetDockerRegistryConfig()
	if err != nil {
		return err
	}

	var client controller.OrchestratorClient
	if deployerConf.SubmitMode == consts.SubmitModeAPI {
		if orchestratorConf.Endpoint == "" {
			return errors.New("orchestrator endpoint is not configured")
		}
		orchestrator := orchestratorclient.NewOrchestratorClient(orchestratorConf.Endpoint, orchestratorConf.ApiKey)
		orchestrator.SetRequestID(runID)
		orchestrator.SetTimeout(deployerConf.RequestTimeout)
		client = orchestrator
	}

	reconciler := &controller.FlowDeploymentReconciler{
		Orchestrator: orchestratorConf,
		Registries:   config.GetRegistryConfig(),
		Deployer:     deployerConf,
		Client:       client,
		Runner:       &controller.ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr},
		ImageChecker: image.NewChecker(dockerRegistryConf),
		Recorder:     &controller.LogRecorder{Logger: opt.logger},
	}

	switch opt.action {
	case actionDeploy:
		_, err = reconciler.Reconcile(ctx, opt.req)
		return err
	case actionPlan:
		plan, err := reconciler.Plan(ctx, opt.req)
		if err != nil {
			return err
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return errors.Wrap(encoder.Encode(plan.Deployment), "print plan")
	case actionBuildEnv:
		_, err = reconciler.WriteBuildEnv(ctx, opt.req)
		return err
	}
	return errors.Errorf("unknown action %q, must be one of %s, %s or %s", opt.action, actionDeploy, actionPlan, actionBuildEnv)
}

func parseYesNo(value string) (bool, error) {
	switch value {
	case "", "no":
		return false, nil
	case "yes":
		return true, nil
	}
	return false, errors.Errorf("must be yes or no, got %q", value)
}
