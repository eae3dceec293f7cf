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

package controller_common

import (
	"context"
	"strconv"
	"strings"

	"emperror.dev/errors"
	"github.com/mitchellh/hashstructure/v2"

	orchestratorclient "github.com/rajjj/narwhal-world/api/nps/orchestrator-client"
	"github.com/rajjj/narwhal-world/api/nps/schemas"
	"github.com/rajjj/narwhal-world/internal/consts"
)

type DeploymentClient interface {
	GetDeploymentByName(ctx context.Context, flowName, deploymentName string) (*schemas.Deployment, error)
	CreateDeployment(ctx context.Context, payload *schemas.DeploymentCreate) (*schemas.Deployment, error)
}

type SyncResult string

const (
	SyncResultCreated   SyncResult = "created"
	SyncResultUpdated   SyncResult = "updated"
	SyncResultUnchanged SyncResult = "unchanged"
)

// SyncDeployment creates the deployment when the orchestrator does not know
// it, and re-submits it when the last applied hash differs from the desired one.
func SyncDeployment(ctx context.Context, c DeploymentClient, flowName string, desired *schemas.DeploymentCreate, createOnly bool) (*schemas.Deployment, SyncResult, error) {
	current, err := c.GetDeploymentByName(ctx, flowName, desired.Name)
	if err != nil {
		if !orchestratorclient.IsNotFound(err) {
			return nil, "", errors.Wrapf(err, "get deployment %s/%s", flowName, desired.Name)
		}
		if _, err := IsSpecChanged(nil, desired); err != nil {
			return nil, "", err
		}
		created, err := c.CreateDeployment(ctx, desired)
		if err != nil {
			return nil, "", errors.Wrapf(err, "create deployment %s/%s", flowName, desired.Name)
		}
		return created, SyncResultCreated, nil
	}

	if createOnly {
		return current, SyncResultUnchanged, nil
	}

	changed, err := IsSpecChanged(current, desired)
	if err != nil {
		return nil, "", err
	}
	if !changed {
		return current, SyncResultUnchanged, nil
	}

	updated, err := c.CreateDeployment(ctx, desired)
	if err != nil {
		return nil, "", errors.Wrapf(err, "update deployment %s/%s", flowName, desired.Name)
	}
	return updated, SyncResultUpdated, nil
}

// GetSpecHash returns a consistent hash of the deployment payload. The hash
// tag itself is not part of the hash.
func GetSpecHash(desired *schemas.DeploymentCreate) (string, error) {
	spec := *desired
	spec.Tags = withoutHashTag(desired.Tags)
	hash, err := hashstructure.Hash(spec, hashstructure.FormatV2, nil)
	if err != nil {
		return "", errors.Wrapf(err, "get deployment %s spec hash", desired.Name)
	}
	return strconv.FormatUint(hash, 10), nil
}

// IsSpecChanged stamps the desired payload with its hash tag and reports
// whether it differs from the hash last applied to current.
func IsSpecChanged(current *schemas.Deployment, desired *schemas.DeploymentCreate) (bool, error) {
	hashStr, err := GetSpecHash(desired)
	if err != nil {
		return false, err
	}
	desired.Tags = append(withoutHashTag(desired.Tags), consts.SpecHashTagPrefix+hashStr)

	if current == nil {
		return true, nil
	}
	applied, ok := HashFromTags(current.Tags)
	return !ok || applied != hashStr, nil
}

func HashFromTags(tags []string) (string, bool) {
	for _, tag := range tags {
		if hash, ok := strings.CutPrefix(tag, consts.SpecHashTagPrefix); ok {
			return hash, true
		}
	}
	return "", false
}

func withoutHashTag(tags []string) []string {
	out := make([]string, 0, len(tags)+1)
	for _, tag := range tags {
		if !strings.HasPrefix(tag, consts.SpecHashTagPrefix) {
			out = append(out, tag)
		}
	}
	return out
}
