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
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"emperror.dev/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	orchestratorclient "github.com/rajjj/narwhal-world/api/nps/orchestrator-client"
	"github.com/rajjj/narwhal-world/api/nps/schemas"
	"github.com/rajjj/narwhal-world/internal/config"
	"github.com/rajjj/narwhal-world/internal/controller_common"
	"github.com/rajjj/narwhal-world/internal/deployfile"
	"github.com/rajjj/narwhal-world/internal/logging"
	"github.com/rajjj/narwhal-world/internal/resolver"
)

type event struct {
	eventType string
	reason    string
}

type fakeRecorder struct {
	events []event
}

func (f *fakeRecorder) Eventf(flow string, eventType, reason, messageFmt string, args ...interface{}) {
	f.events = append(f.events, event{eventType: eventType, reason: reason})
}

func (f *fakeRecorder) reasons() []string {
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.reason)
	}
	return out
}

type fakeRunner struct {
	calls []string
	dirs  []string
	err   error
}

func (f *fakeRunner) Run(ctx context.Context, dir string, name string, args ...string) error {
	f.calls = append(f.calls, strings.Join(append([]string{name}, args...), " "))
	f.dirs = append(f.dirs, dir)
	return f.err
}

type fakeChecker struct {
	exists bool
	images []string
}

func (f *fakeChecker) Exists(ctx context.Context, image string) (bool, error) {
	f.images = append(f.images, image)
	return f.exists, nil
}

type fakeOrchestrator struct {
	flows     []string
	created   []*schemas.DeploymentCreate
	createErr error
}

func (f *fakeOrchestrator) CreateFlow(ctx context.Context, name string) (*schemas.Flow, error) {
	f.flows = append(f.flows, name)
	return &schemas.Flow{ID: "flow-1", Name: name}, nil
}

func (f *fakeOrchestrator) GetDeploymentByName(ctx context.Context, flowName, deploymentName string) (*schemas.Deployment, error) {
	return nil, &orchestratorclient.HTTPError{StatusCode: http.StatusNotFound}
}

func (f *fakeOrchestrator) CreateDeployment(ctx context.Context, payload *schemas.DeploymentCreate) (*schemas.Deployment, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, payload)
	return &schemas.Deployment{ID: "dep-" + payload.Name, Name: payload.Name}, nil
}

const baseManifest = `
[project]
name = "etl"
version = "1.2.0"

[sama-build]
amount = "med"
infra = "ecs"
deploy-list = ["nightly", "hourly"]
`

func writeFlow(workDir, manifestContent string) string {
	dir := filepath.Join(workDir, "etl")
	Expect(os.MkdirAll(filepath.Join(dir, "etl"), 0o755)).To(Succeed())
	Expect(os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte(manifestContent), 0o644)).To(Succeed())
	Expect(os.WriteFile(filepath.Join(dir, "etl", "etl.py"), []byte("def main():\n    pass\n"), 0o644)).To(Succeed())
	return dir
}

var _ = Describe("FlowDeploymentReconciler", func() {
	var (
		ctx          context.Context
		workDir      string
		flowDir      string
		recorder     *fakeRecorder
		runner       *fakeRunner
		checker      *fakeChecker
		orchestrator *fakeOrchestrator
		reconciler   *FlowDeploymentReconciler
		req          Request
	)

	BeforeEach(func() {
		Expect(os.Setenv("TEMPLATE_VERSION", "6.0")).To(Succeed())
		DeferCleanup(os.Unsetenv, "TEMPLATE_VERSION")

		logger := logrus.New()
		logger.SetOutput(GinkgoWriter)
		ctx = logging.IntoContext(context.Background(), logger)

		var err error
		workDir, err = os.MkdirTemp("", "nps-flows-")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, workDir)
		flowDir = writeFlow(workDir, baseManifest)

		recorder = &fakeRecorder{}
		runner = &fakeRunner{}
		checker = &fakeChecker{exists: true}
		orchestrator = &fakeOrchestrator{}
		reconciler = &FlowDeploymentReconciler{
			Orchestrator: &config.OrchestratorConfig{Version: "2.20.16"},
			Registries:   &config.RegistryConfig{AWSAccountID: "123"},
			Deployer:     &config.DeployerConfig{SubmitMode: "cli"},
			Client:       orchestrator,
			Runner:       runner,
			ImageChecker: checker,
			Recorder:     recorder,
		}
		req = Request{ScriptName: "etl", WorkDir: workDir}
	})

	Context("planning", func() {
		It("resolves the flow without writing anything", func() {
			plan, err := reconciler.Plan(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(plan.Deployment.DeploymentNames()).To(Equal([]string{"nightly", "hourly"}))
			Expect(plan.Deployment.Version).To(Equal("1.2.0-prefect-2.20.16"))
			Expect(plan.Deployment.WorkPool).To(Equal("narpool-aws-us"))
			Expect(plan.Image).To(Equal("123.dkr.ecr.us-east-1.amazonaws.com/etl"))
			Expect(plan.JobVariables).To(HaveKeyWithValue("cpu", int64(1024)))
			Expect(plan.JobVariables).To(HaveKeyWithValue("memory", int64(4096)))
			Expect(filepath.Join(flowDir, "etl_deployment.yaml")).NotTo(BeAnExistingFile())
		})

		It("uses an explicit registry", func() {
			req.Registry = "456.dkr.ecr.us-east-1.amazonaws.com"
			plan, err := reconciler.Plan(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(plan.Image).To(Equal("456.dkr.ecr.us-east-1.amazonaws.com/etl"))
			Expect(plan.Registry.Name).To(Equal("narwhal-ecr"))
		})
	})

	Context("deploying with the CLI", func() {
		It("writes the flow files and runs the orchestrator CLI", func() {
			result, err := reconciler.Reconcile(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Submitted).To(BeTrue())
			Expect(result.DeploymentFile).To(Equal(filepath.Join(flowDir, "etl_deployment.yaml")))

			file, err := deployfile.Read(result.DeploymentFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(file.Deployments).To(HaveLen(2))
			Expect(file.Deployments[0].Name).To(Equal("nightly"))
			Expect(file.Deployments[1].Name).To(Equal("hourly"))
			Expect(file.Deployments[0].Entrypoint).To(Equal("etl/etl.py:main"))

			content, err := os.ReadFile(filepath.Join(flowDir, "cred.json"))
			Expect(err).NotTo(HaveOccurred())
			Expect(content).To(MatchJSON(`{"infra_type": "narwhal", "cloud": "aws"}`))

			Expect(runner.calls).To(Equal([]string{"prefect deploy --prefect-file etl_deployment.yaml --all"}))
			Expect(runner.dirs).To(Equal([]string{flowDir}))
			Expect(recorder.reasons()).To(ContainElement("Deployed"))
			Expect(orchestrator.created).To(BeEmpty())
		})

		It("builds the slam extension before submitting", func() {
			writeFlow(workDir, baseManifest+"nps-ext = [\"slam\"]\n")
			_, err := reconciler.Reconcile(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(runner.calls).To(Equal([]string{
				"uv run build-slam",
				"prefect deploy --prefect-file etl_deployment.yaml --all",
			}))
		})

		It("reports a failed submission", func() {
			runner.err = errors.New("exit status 1")
			result, err := reconciler.Reconcile(ctx, req)
			Expect(err).To(HaveOccurred())
			Expect(result.Submitted).To(BeFalse())
			Expect(recorder.reasons()).To(ContainElement("ReconcileError"))
		})
	})

	Context("deploying through the API", func() {
		BeforeEach(func() {
			reconciler.Deployer.SubmitMode = "api"
		})

		It("syncs every deployment in order", func() {
			result, err := reconciler.Reconcile(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(orchestrator.flows).To(Equal([]string{"etl"}))
			Expect(orchestrator.created).To(HaveLen(2))
			Expect(orchestrator.created[0].Name).To(Equal("nightly"))
			Expect(orchestrator.created[0].FlowID).To(Equal("flow-1"))
			Expect(orchestrator.created[0].WorkQueueName).To(Equal("narq_etl"))
			Expect(orchestrator.created[0].PullSteps).To(HaveLen(1))
			Expect(orchestrator.created[1].Name).To(Equal("hourly"))
			Expect(result.Deployments).To(Equal([]DeploymentStatus{
				{Name: "nightly", ID: "dep-nightly", Result: controller_common.SyncResultCreated},
				{Name: "hourly", ID: "dep-hourly", Result: controller_common.SyncResultCreated},
			}))
			Expect(runner.calls).To(BeEmpty())
		})

		It("stops at the first failed deployment", func() {
			orchestrator.createErr = errors.New("boom")
			result, err := reconciler.Reconcile(ctx, req)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("nightly"))
			Expect(result.Deployments).To(BeEmpty())
			Expect(result.Submitted).To(BeFalse())
		})
	})

	Context("preflight", func() {
		It("skips submission on a dry run", func() {
			req.DryRun = true
			result, err := reconciler.Reconcile(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Submitted).To(BeFalse())
			Expect(result.DeploymentFile).To(BeAnExistingFile())
			Expect(runner.calls).To(BeEmpty())
		})

		It("fails when the image is missing", func() {
			req.CheckImage = true
			checker.exists = false
			_, err := reconciler.Reconcile(ctx, req)
			Expect(err).To(HaveOccurred())
			Expect(checker.images).To(Equal([]string{"123.dkr.ecr.us-east-1.amazonaws.com/etl"}))
			Expect(runner.calls).To(BeEmpty())
		})

		It("rejects an invalid build table before writing anything", func() {
			writeFlow(workDir, baseManifest+"disk = \"500Gi\"\n")
			_, err := reconciler.Reconcile(ctx, req)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, resolver.ErrInvalidConfig)).To(BeTrue())
			Expect(filepath.Join(flowDir, "etl_deployment.yaml")).NotTo(BeAnExistingFile())
			Expect(filepath.Join(flowDir, "cred.json")).NotTo(BeAnExistingFile())
			Expect(runner.calls).To(BeEmpty())
		})

		It("rejects an unsupported template version", func() {
			Expect(os.Setenv("TEMPLATE_VERSION", "5.0")).To(Succeed())
			_, err := reconciler.Reconcile(ctx, req)
			Expect(err).To(HaveOccurred())
			Expect(recorder.reasons()).To(Equal([]string{"ReconcileError"}))
		})
	})

	Context("build env", func() {
		It("writes the build variables into the flow directory", func() {
			req.ManifestChanged = true
			path, err := reconciler.WriteBuildEnv(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(filepath.Join(flowDir, "sama_build.env")))

			content, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(ContainSubstring("SAMA_IMAGE_NAME='etl'\n"))
			Expect(string(content)).To(ContainSubstring("SAMA_BUILD_TAG='1.2.0'\n"))
			Expect(string(content)).To(ContainSubstring("SAMA_PREFECT_VER='prefect-2.20.16'\n"))
			Expect(string(content)).To(ContainSubstring("SAMA_TOML_CHANGE='yes'\n"))
			Expect(string(content)).To(ContainSubstring("SAMA_BASE_IMAGE='123.dkr.ecr.us-east-1.amazonaws.com/python_base_311:latest'\n"))
		})
	})
})

var _ = Describe("writeCredentials", func() {
	It("writes the giver infra type", func() {
		dir, err := os.MkdirTemp("", "nps-cred-")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)
		path := filepath.Join(dir, "cred.json")
		Expect(writeCredentials(path, Credentials{InfraType: "giver", Cloud: "gcp"})).To(Succeed())
		content, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		var creds map[string]string
		Expect(json.Unmarshal(content, &creds)).To(Succeed())
		Expect(creds).To(Equal(map[string]string{"infra_type": "giver", "cloud": "gcp"}))
	})
})
