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

package v1alpha1

import (
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/rajjj/narwhal-world/api/nps/schemas"
)

type InfraType string

const (
	InfraTypeGiver InfraType = "giver"
	InfraTypeECS   InfraType = "ecs"
	InfraTypeGKE   InfraType = "gke"
	// InfraTypeNarwhal is the legacy name of ecs.
	InfraTypeNarwhal InfraType = "narwhal"
)

type CloudVendor string

const (
	CloudVendorAWS   CloudVendor = "aws"
	CloudVendorGCP   CloudVendor = "gcp"
	CloudVendorAzure CloudVendor = "azure"
)

type Region string

const (
	RegionUS Region = "us"
	RegionEU Region = "eu"
)

type ResourcePreset string

const (
	ResourcePresetVeryLow ResourcePreset = "very-low"
	ResourcePresetLow     ResourcePreset = "low"
	ResourcePresetMed     ResourcePreset = "med"
	ResourcePresetHigh    ResourcePreset = "high"
	ResourcePresetCustom  ResourcePreset = "custom"
)

type ScheduleKind string

const (
	ScheduleKindCron     ScheduleKind = "cron"
	ScheduleKindInterval ScheduleKind = "interval"
	ScheduleKindRRule    ScheduleKind = "rrule"
)

// Schedule is exactly one of cron, interval or rrule.
type Schedule struct {
	Cron       string            `json:"cron,omitempty" yaml:"cron,omitempty"`
	DayOr      *bool             `json:"day_or,omitempty" yaml:"day_or,omitempty"`
	Interval   *schemas.Duration `json:"interval,omitempty" yaml:"interval,omitempty"`
	AnchorDate string            `json:"anchor_date,omitempty" yaml:"anchor_date,omitempty"`
	RRule      string            `json:"rrule,omitempty" yaml:"rrule,omitempty"`
	Timezone   string            `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

// Kinds returns every schedule kind the value sets. A valid schedule sets one.
func (s *Schedule) Kinds() []ScheduleKind {
	if s == nil {
		return nil
	}
	kinds := make([]ScheduleKind, 0, 1)
	if s.Cron != "" {
		kinds = append(kinds, ScheduleKindCron)
	}
	if s.Interval != nil {
		kinds = append(kinds, ScheduleKindInterval)
	}
	if s.RRule != "" {
		kinds = append(kinds, ScheduleKindRRule)
	}
	return kinds
}

type ResourceRequirements struct {
	Preset ResourcePreset      `json:"preset"`
	Limits corev1.ResourceList `json:"limits"`
}

func (r ResourceRequirements) CPU() resource.Quantity {
	return r.Limits[corev1.ResourceCPU]
}

func (r ResourceRequirements) Memory() resource.Quantity {
	return r.Limits[corev1.ResourceMemory]
}

func (r ResourceRequirements) Disk() *resource.Quantity {
	q, ok := r.Limits[corev1.ResourceEphemeralStorage]
	if !ok {
		return nil
	}
	return &q
}

// DeploymentSpec is one schedulable deployment of a flow.
type DeploymentSpec struct {
	Name       string                 `json:"name"`
	Schedule   *Schedule              `json:"schedule,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Resources  ResourceRequirements   `json:"resources"`
}

// FlowDeployment is the resolved deployment plan of one flow build.
type FlowDeployment struct {
	ScriptName  string      `json:"scriptName"`
	Version     string      `json:"version"`
	Infra       InfraType   `json:"infra"`
	Cloud       CloudVendor `json:"cloud"`
	Region      Region      `json:"region"`
	PyVer       string      `json:"pyver"`
	CustomImage bool        `json:"customImage,omitempty"`
	Extensions  []string    `json:"extensions,omitempty"`

	Resources ResourceRequirements `json:"resources"`
	WorkPool  string               `json:"workPool"`
	WorkQueue string               `json:"workQueue"`

	Deployments []DeploymentSpec `json:"deployments"`
}

func (f *FlowDeployment) DeploymentNames() []string {
	names := make([]string, 0, len(f.Deployments))
	for _, d := range f.Deployments {
		names = append(names, d.Name)
	}
	return names
}
