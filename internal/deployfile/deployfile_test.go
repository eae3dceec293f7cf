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

package deployfile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/onsi/gomega"
	"gopkg.in/yaml.v2"

	"github.com/rajjj/narwhal-world/api/nps/schemas"
	"github.com/rajjj/narwhal-world/api/v1alpha1"
)

func testFlow() *v1alpha1.FlowDeployment {
	every := schemas.Duration(30 * time.Minute)
	return &v1alpha1.FlowDeployment{
		ScriptName: "etl",
		Version:    "1.2.0-prefect-2.20.16",
		WorkPool:   "narpool-aws-us",
		WorkQueue:  "narq_etl",
		Deployments: []v1alpha1.DeploymentSpec{
			{Name: "nightly", Schedule: &v1alpha1.Schedule{Cron: "0 2 * * *", Timezone: "UTC"}},
			{Name: "frequent", Schedule: &v1alpha1.Schedule{Interval: &every, AnchorDate: "2024-01-01T00:00:00", Timezone: "UTC"}},
			{Name: "adhoc", Parameters: map[string]interface{}{"dry_run": true}},
		},
	}
}

func TestGenerate(t *testing.T) {
	g := gomega.NewGomegaWithT(t)

	jobVars := map[string]interface{}{"cpu": int64(1024), "memory": int64(2048)}
	file, err := Generate(GenerateOption{
		Flow:                testFlow(),
		OrchestratorVersion: "2.20.16",
		EntrypointPath:      "etl/etl.py",
		JobVariables:        jobVars,
	})
	g.Expect(err).NotTo(gomega.HaveOccurred())

	g.Expect(file.Name).To(gomega.Equal("etl"))
	g.Expect(file.PrefectVersion).To(gomega.Equal("2.20.16"))
	g.Expect(file.Build).To(gomega.BeEmpty())
	g.Expect(file.Pull).To(gomega.Equal([]Step{{
		"prefect_aws.deployments.steps.pull_from_s3": {
			ID:          "pull_code",
			Bucket:      "narwhal-flow-store",
			Folder:      "etl",
			Credentials: "{{ prefect.blocks.aws-credentials.aws-prefect-sa }}",
		},
	}}))

	g.Expect(file.Deployments).To(gomega.HaveLen(3))
	for i, d := range file.Deployments {
		g.Expect(d.Version).To(gomega.Equal("1.2.0-prefect-2.20.16"))
		g.Expect(d.Entrypoint).To(gomega.Equal("etl/etl.py:main"))
		g.Expect(d.WorkPool).To(gomega.Equal(WorkPool{Name: "narpool-aws-us", WorkQueueName: "narq_etl", JobVariables: jobVars}))
		g.Expect(d.Tags).To(gomega.BeEmpty())
		if i == 0 {
			g.Expect(d.Push).To(gomega.Equal([]Step{PushStep("etl")}))
		} else {
			g.Expect(d.Push).To(gomega.BeEmpty())
		}
	}
	g.Expect(file.Deployments[0].Parameters).To(gomega.Equal(map[string]interface{}{}))
	g.Expect(file.Deployments[2].Parameters).To(gomega.Equal(map[string]interface{}{"dry_run": true}))
}

func TestGenerateWithoutDeployments(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	_, err := Generate(GenerateOption{Flow: &v1alpha1.FlowDeployment{ScriptName: "etl"}})
	g.Expect(err).To(gomega.HaveOccurred())
}

func TestWriteAndRead(t *testing.T) {
	g := gomega.NewGomegaWithT(t)

	file, err := Generate(GenerateOption{
		Flow:                testFlow(),
		OrchestratorVersion: "2.20.16",
		EntrypointPath:      "etl/etl.py",
		JobVariables:        map[string]interface{}{"image": "reg/etl"},
	})
	g.Expect(err).NotTo(gomega.HaveOccurred())

	path := filepath.Join(t.TempDir(), "etl_deployment.yaml")
	g.Expect(file.Write(path)).To(gomega.Succeed())

	back, err := Read(path)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(back.Deployments).To(gomega.HaveLen(3))
	g.Expect(back.Deployments[0].Schedule).To(gomega.Equal(&v1alpha1.Schedule{Cron: "0 2 * * *", Timezone: "UTC"}))
	g.Expect(time.Duration(*back.Deployments[1].Schedule.Interval)).To(gomega.Equal(30 * time.Minute))
	g.Expect(back.Deployments[2].Schedule).To(gomega.BeNil())
	g.Expect(back.Deployments[1].Push).To(gomega.BeEmpty())
	g.Expect(back.Pull).To(gomega.Equal(file.Pull))
}

func TestMarshalLayout(t *testing.T) {
	g := gomega.NewGomegaWithT(t)

	file, err := Generate(GenerateOption{
		Flow:                testFlow(),
		OrchestratorVersion: "2.20.16",
		EntrypointPath:      "etl/etl.py",
	})
	g.Expect(err).NotTo(gomega.HaveOccurred())

	out, err := file.Marshal()
	g.Expect(err).NotTo(gomega.HaveOccurred())

	var doc map[string]interface{}
	g.Expect(yaml.Unmarshal(out, &doc)).To(gomega.Succeed())
	g.Expect(doc).To(gomega.HaveKeyWithValue("build", gomega.BeEmpty()))
	g.Expect(doc).To(gomega.HaveKey("pull"))
	g.Expect(doc).To(gomega.HaveKeyWithValue("prefect-version", "2.20.16"))

	deployments, ok := doc["deployments"].([]interface{})
	g.Expect(ok).To(gomega.BeTrue())
	second, ok := deployments[1].(map[interface{}]interface{})
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(second).To(gomega.HaveKeyWithValue("push", gomega.BeEmpty()))
	g.Expect(second["schedule"]).To(gomega.HaveKeyWithValue("interval", 1800))
}

func TestStepAsMap(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	g.Expect(PullStep("etl").AsMap()).To(gomega.Equal(map[string]interface{}{
		"prefect_aws.deployments.steps.pull_from_s3": map[string]interface{}{
			"id":          "pull_code",
			"bucket":      "narwhal-flow-store",
			"folder":      "etl",
			"credentials": "{{ prefect.blocks.aws-credentials.aws-prefect-sa }}",
		},
	}))
}
