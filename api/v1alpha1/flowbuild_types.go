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
	"fmt"
	"strconv"
)

// FlowManifest is the subset of a flow package's pyproject.toml read by the deployer.
type FlowManifest struct {
	Project FlowProject    `toml:"project" json:"project"`
	Build   *FlowBuildSpec `toml:"sama-build" json:"sama-build,omitempty"`
}

type FlowProject struct {
	Name    string `toml:"name" json:"name"`
	Version string `toml:"version" json:"version,omitempty"`
}

// FlowBuildSpec is the per-flow deployment configuration table.
type FlowBuildSpec struct {
	// optional, one of very-low, low, med, high, custom
	Amount string `toml:"amount" json:"amount,omitempty"`
	// required when Amount is custom
	CPU    QuantityValue `toml:"cpu" json:"cpu,omitempty"`
	Memory QuantityValue `toml:"memory" json:"memory,omitempty"`
	Disk   QuantityValue `toml:"disk" json:"disk,omitempty"`

	PyVer       string   `toml:"pyver" json:"pyver,omitempty"`
	CustomImage bool     `toml:"custom-image" json:"custom-image,omitempty"`
	Extensions  []string `toml:"nps-ext" json:"nps-ext,omitempty"`

	// deploy-json > deploy-list > deploy-num
	DeployJSON DeployJSONRef `toml:"deploy-json" json:"deploy-json,omitempty"`
	DeployList []string      `toml:"deploy-list" json:"deploy-list,omitempty"`
	DeployNum  *int64        `toml:"deploy-num" json:"deploy-num,omitempty"`

	Infra  string `toml:"infra" json:"infra,omitempty"`
	Cloud  string `toml:"cloud" json:"cloud,omitempty"`
	Region string `toml:"region" json:"region,omitempty"`

	// Deprecated: accepted and ignored.
	SkipDeploy *bool `toml:"skip-deploy" json:"skip-deploy,omitempty"`
	// Deprecated: only prod remains.
	Workspace string `toml:"workspace" json:"workspace,omitempty"`
}

// QuantityValue holds a resource amount written either as a TOML string
// ("0.5", "4Gi") or as a bare number.
type QuantityValue string

func (q *QuantityValue) UnmarshalTOML(v interface{}) error {
	switch value := v.(type) {
	case string:
		*q = QuantityValue(value)
	case int64:
		*q = QuantityValue(strconv.FormatInt(value, 10))
	case float64:
		*q = QuantityValue(strconv.FormatFloat(value, 'f', -1, 64))
	default:
		return fmt.Errorf("expected a string or number, got %T", v)
	}
	return nil
}

func (q QuantityValue) IsSet() bool {
	return q != ""
}

func (q QuantityValue) String() string {
	return string(q)
}

// DeployJSONRef is deploy-json: true selects deploy.json next to the flow,
// a string selects a file relative to the flow directory.
type DeployJSONRef struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

func (r *DeployJSONRef) UnmarshalTOML(v interface{}) error {
	switch value := v.(type) {
	case bool:
		r.Enabled = value
		r.Path = ""
	case string:
		if value == "" {
			return fmt.Errorf("deploy-json path must not be empty")
		}
		r.Enabled = true
		r.Path = value
	default:
		return fmt.Errorf("expected a bool or a path, got %T", v)
	}
	return nil
}

// DeployFile is the content of deploy.json.
type DeployFile struct {
	Deploy []DeployEntry `json:"deploy"`
}

type DeployEntry struct {
	Name       string                 `json:"name"`
	Schedule   *Schedule              `json:"schedule,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}
