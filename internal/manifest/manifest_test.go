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
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/onsi/gomega"
	"k8s.io/utils/ptr"

	"github.com/rajjj/narwhal-world/api/v1alpha1"
)

func writeFlow(t *testing.T, script, pyproject string, extra map[string]string) string {
	t.Helper()
	workDir := t.TempDir()
	dir := filepath.Join(workDir, script)
	if err := os.MkdirAll(filepath.Join(dir, script), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"pyproject.toml":                   pyproject,
		filepath.Join(script, script+".py"): "def main(): pass\n",
	}
	for k, v := range extra {
		files[k] = v
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return workDir
}

func TestLoad(t *testing.T) {
	g := gomega.NewGomegaWithT(t)

	workDir := writeFlow(t, "daily_sync", `
[project]
name = "daily-sync"
version = "2.3.0"

[sama-build]
amount = "custom"
cpu = 2
memory = "4Gi"
disk = "30Gi"
infra = "ecs"
deploy-json = true
deploy-list = ["ignored"]
deploy-num = 3
nps-ext = ["slam"]
`, map[string]string{
		"deploy.json": `{"deploy": [
			{"name": "hourly", "schedule": {"cron": "0 * * * *", "timezone": "UTC"}},
			{"name": "adhoc", "parameters": {"limit": 10}}
		]}`,
	})

	flow, err := Load(context.Background(), workDir, "daily_sync")
	g.Expect(err).NotTo(gomega.HaveOccurred())

	g.Expect(flow.Dir).To(gomega.Equal(filepath.Join(workDir, "daily_sync")))
	g.Expect(flow.EntrypointPath()).To(gomega.Equal("daily_sync/daily_sync.py"))
	g.Expect(flow.DeploymentFilePath()).To(gomega.Equal(filepath.Join(workDir, "daily_sync", "daily_sync_deployment.yaml")))
	g.Expect(flow.Manifest.Project).To(gomega.Equal(v1alpha1.FlowProject{Name: "daily-sync", Version: "2.3.0"}))

	build := flow.Manifest.Build
	g.Expect(build.Amount).To(gomega.Equal("custom"))
	g.Expect(build.CPU).To(gomega.Equal(v1alpha1.QuantityValue("2")))
	g.Expect(build.Memory).To(gomega.Equal(v1alpha1.QuantityValue("4Gi")))
	g.Expect(build.Disk).To(gomega.Equal(v1alpha1.QuantityValue("30Gi")))
	g.Expect(build.DeployJSON).To(gomega.Equal(v1alpha1.DeployJSONRef{Enabled: true}))
	g.Expect(build.DeployList).To(gomega.Equal([]string{"ignored"}))
	g.Expect(build.DeployNum).To(gomega.Equal(ptr.To(int64(3))))
	g.Expect(build.Extensions).To(gomega.Equal([]string{"slam"}))

	g.Expect(flow.DeployFile).NotTo(gomega.BeNil())
	g.Expect(flow.DeployFile.Deploy).To(gomega.HaveLen(2))
	g.Expect(flow.DeployFile.Deploy[0].Name).To(gomega.Equal("hourly"))
	g.Expect(flow.DeployFile.Deploy[0].Schedule.Cron).To(gomega.Equal("0 * * * *"))
	g.Expect(flow.DeployFile.Deploy[1].Parameters).To(gomega.HaveKeyWithValue("limit", float64(10)))
}

func TestLoadDefaults(t *testing.T) {
	g := gomega.NewGomegaWithT(t)

	workDir := writeFlow(t, "plain", "[project]\nname = \"plain\"\n", nil)

	flow, err := Load(context.Background(), workDir, "plain")
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(flow.Manifest.Project.Version).To(gomega.Equal("1.0.0"))
	g.Expect(flow.Manifest.Build).To(gomega.Equal(&v1alpha1.FlowBuildSpec{}))
	g.Expect(flow.DeployFile).To(gomega.BeNil())
}

func TestLoadDeployJSONPath(t *testing.T) {
	g := gomega.NewGomegaWithT(t)

	workDir := writeFlow(t, "custom_path", `
[sama-build]
deploy-json = "schedules.json"
`, map[string]string{
		"schedules.json": `{"deploy": [{"name": "one"}]}`,
	})

	flow, err := Load(context.Background(), workDir, "custom_path")
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(flow.Manifest.Build.DeployJSON).To(gomega.Equal(v1alpha1.DeployJSONRef{Enabled: true, Path: "schedules.json"}))
	g.Expect(flow.DeployFile.Deploy).To(gomega.Equal([]v1alpha1.DeployEntry{{Name: "one"}}))
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name      string
		pyproject string
		extra     map[string]string
		script    string
	}{
		{
			name:      "deploy-json without file",
			pyproject: "[sama-build]\ndeploy-json = true\n",
		},
		{
			name:      "deploy-json of wrong type",
			pyproject: "[sama-build]\ndeploy-json = 3\n",
		},
		{
			name:      "cpu of wrong type",
			pyproject: "[sama-build]\ncpu = true\n",
		},
		{
			name:      "malformed toml",
			pyproject: "[sama-build\n",
		},
		{
			name:      "deploy file without deploy key",
			pyproject: "[sama-build]\ndeploy-json = true\n",
			extra:     map[string]string{"deploy.json": `{"deployments": []}`},
		},
		{
			name:      "missing flow module",
			pyproject: "[project]\nname = \"x\"\n",
			script:    "other",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := gomega.NewGomegaWithT(t)
			workDir := writeFlow(t, "flow", tt.pyproject, tt.extra)
			if tt.script != "" {
				g.Expect(os.Rename(filepath.Join(workDir, "flow"), filepath.Join(workDir, tt.script))).To(gomega.Succeed())
			}
			script := "flow"
			if tt.script != "" {
				script = tt.script
			}
			_, err := Load(context.Background(), workDir, script)
			g.Expect(err).To(gomega.HaveOccurred())
		})
	}
}

func TestParseDeployFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{name: "entries", content: `{"deploy": [{"name": "a"}, {"name": "b"}]}`, want: 2},
		{name: "empty list", content: `{"deploy": []}`, want: 0},
		{name: "null deploy", content: `{"deploy": null}`, wantErr: true},
		{name: "missing deploy", content: `{}`, wantErr: true},
		{name: "not an object", content: `[]`, wantErr: true},
		{name: "entries not a list", content: `{"deploy": {"name": "a"}}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := gomega.NewGomegaWithT(t)
			got, err := ParseDeployFile([]byte(tt.content))
			if tt.wantErr {
				g.Expect(err).To(gomega.HaveOccurred())
				return
			}
			g.Expect(err).NotTo(gomega.HaveOccurred())
			g.Expect(got.Deploy).To(gomega.HaveLen(tt.want))
		})
	}
}

func TestScriptName(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	g.Expect(ScriptName("daily-sync-job")).To(gomega.Equal("daily_sync_job"))
	g.Expect(ScriptName(" plain ")).To(gomega.Equal("plain"))
}
