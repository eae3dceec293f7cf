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

package conversion

import (
	"github.com/jinzhu/copier"

	"github.com/rajjj/narwhal-world/api/nps/schemas"
	"github.com/rajjj/narwhal-world/api/v1alpha1"
)

func ConvertToSchedule(src *v1alpha1.Schedule) (dest *schemas.Schedule) {
	if src == nil {
		return
	}
	dest = &schemas.Schedule{}
	if err := copier.CopyWithOption(dest, src, copier.Option{DeepCopy: true}); err != nil {
		return nil
	}
	return
}

func ConvertFromSchedule(src *schemas.Schedule) (dest *v1alpha1.Schedule) {
	if src == nil {
		return
	}
	dest = &v1alpha1.Schedule{}
	if err := copier.CopyWithOption(dest, src, copier.Option{DeepCopy: true}); err != nil {
		return nil
	}
	return
}

type DeploymentCreateOption struct {
	FlowID       string
	Entrypoint   string
	JobVariables map[string]interface{}
	PullSteps    []map[string]interface{}
}

func ConvertToDeploymentCreate(flow *v1alpha1.FlowDeployment, spec *v1alpha1.DeploymentSpec, opt DeploymentCreateOption) (dest *schemas.DeploymentCreate) {
	if flow == nil || spec == nil {
		return
	}
	params := spec.Parameters
	if params == nil {
		params = map[string]interface{}{}
	}
	jobVariables := opt.JobVariables
	if jobVariables == nil {
		jobVariables = map[string]interface{}{}
	}
	dest = &schemas.DeploymentCreate{
		Name:          spec.Name,
		FlowID:        opt.FlowID,
		Version:       flow.Version,
		Tags:          []string{},
		Schedule:      ConvertToSchedule(spec.Schedule),
		Parameters:    params,
		Entrypoint:    opt.Entrypoint,
		WorkPoolName:  flow.WorkPool,
		WorkQueueName: flow.WorkQueue,
		JobVariables:  jobVariables,
		PullSteps:     opt.PullSteps,
	}
	if dest.Schedule != nil {
		active := true
		dest.IsScheduleOn = &active
	}
	return
}
