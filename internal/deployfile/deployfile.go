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
	"os"

	"emperror.dev/errors"
	"gopkg.in/yaml.v2"

	"github.com/rajjj/narwhal-world/api/v1alpha1"
	"github.com/rajjj/narwhal-world/internal/consts"
)

// File is the orchestrator's deployment document, deployed with
// `prefect deploy --prefect-file <file> --all`.
type File struct {
	Name           string        `yaml:"name"`
	PrefectVersion string        `yaml:"prefect-version"`
	Build          []Step        `yaml:"build"`
	Pull           []Step        `yaml:"pull"`
	Deployments    []*Deployment `yaml:"deployments"`
}

// Step maps a step function to its arguments.
type Step map[string]StepArgs

// AsMap renders the step the way the orchestrator REST API takes pull steps.
func (s Step) AsMap() map[string]interface{} {
	out := make(map[string]interface{}, len(s))
	for fn, args := range s {
		out[fn] = map[string]interface{}{
			"id":          args.ID,
			"bucket":      args.Bucket,
			"folder":      args.Folder,
			"credentials": args.Credentials,
		}
	}
	return out
}

type StepArgs struct {
	ID          string `yaml:"id"`
	Bucket      string `yaml:"bucket"`
	Folder      string `yaml:"folder"`
	Credentials string `yaml:"credentials"`
}

type Deployment struct {
	Name        string                 `yaml:"name"`
	Version     string                 `yaml:"version"`
	Tags        []string               `yaml:"tags"`
	Schedule    *v1alpha1.Schedule     `yaml:"schedule"`
	FlowName    *string                `yaml:"flow_name"`
	Description *string                `yaml:"description"`
	Entrypoint  string                 `yaml:"entrypoint"`
	Parameters  map[string]interface{} `yaml:"parameters"`
	WorkPool    WorkPool               `yaml:"work_pool"`
	Push        []Step                 `yaml:"push"`
}

type WorkPool struct {
	Name          string                 `yaml:"name"`
	WorkQueueName string                 `yaml:"work_queue_name"`
	JobVariables  map[string]interface{} `yaml:"job_variables"`
}

type GenerateOption struct {
	Flow                *v1alpha1.FlowDeployment
	OrchestratorVersion string
	// flow module relative to the deployment file, e.g. etl/etl.py
	EntrypointPath string
	JobVariables   map[string]interface{}
}

func PullStep(scriptName string) Step {
	return Step{consts.StepPullFromS3: {
		ID:          "pull_code",
		Bucket:      consts.FlowCloudStorage,
		Folder:      scriptName,
		Credentials: consts.FlowCredentialsRef,
	}}
}

func PushStep(scriptName string) Step {
	return Step{consts.StepPushToS3: {
		ID:          "push_code",
		Bucket:      consts.FlowCloudStorage,
		Folder:      scriptName,
		Credentials: consts.FlowCredentialsRef,
	}}
}

// Generate builds the document for every resolved deployment, in order.
// Only the first deployment uploads the flow code.
func Generate(opt GenerateOption) (*File, error) {
	flow := opt.Flow
	if flow == nil || len(flow.Deployments) == 0 {
		return nil, errors.New("no deployments to render")
	}

	file := &File{
		Name:           flow.ScriptName,
		PrefectVersion: opt.OrchestratorVersion,
		Build:          []Step{},
		Pull:           []Step{PullStep(flow.ScriptName)},
		Deployments:    make([]*Deployment, 0, len(flow.Deployments)),
	}

	for i, spec := range flow.Deployments {
		params := spec.Parameters
		if params == nil {
			params = map[string]interface{}{}
		}
		deployment := &Deployment{
			Name:       spec.Name,
			Version:    flow.Version,
			Tags:       []string{},
			Schedule:   spec.Schedule,
			Entrypoint: opt.EntrypointPath + ":main",
			Parameters: params,
			WorkPool: WorkPool{
				Name:          flow.WorkPool,
				WorkQueueName: flow.WorkQueue,
				JobVariables:  opt.JobVariables,
			},
			Push: []Step{},
		}
		if i == 0 {
			deployment.Push = []Step{PushStep(flow.ScriptName)}
		}
		file.Deployments = append(file.Deployments, deployment)
	}
	return file, nil
}

func (f *File) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(f)
	return out, errors.Wrap(err, "marshal deployment file")
}

func (f *File) Write(path string) error {
	out, err := f.Marshal()
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, out, 0o644), "write deployment file %s", path)
}

func Read(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read deployment file %s", path)
	}
	f := &File{}
	if err := yaml.Unmarshal(content, f); err != nil {
		return nil, errors.Wrapf(err, "decode deployment file %s", path)
	}
	return f, nil
}
