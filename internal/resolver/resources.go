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

package resolver

import (
	"context"
	"sort"
	"strings"

	"emperror.dev/errors"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/rajjj/narwhal-world/api/v1alpha1"
	"github.com/rajjj/narwhal-world/internal/consts"
	"github.com/rajjj/narwhal-world/internal/infra"
	"github.com/rajjj/narwhal-world/internal/logging"
)

type Preset struct {
	CPU    resource.Quantity
	Memory resource.Quantity
}

var presets = map[v1alpha1.ResourcePreset]Preset{
	v1alpha1.ResourcePresetVeryLow: {CPU: resource.MustParse("0.5"), Memory: resource.MustParse("512Mi")},
	v1alpha1.ResourcePresetLow:     {CPU: resource.MustParse("1"), Memory: resource.MustParse("2Gi")},
	v1alpha1.ResourcePresetMed:     {CPU: resource.MustParse("1"), Memory: resource.MustParse("4Gi")},
	v1alpha1.ResourcePresetHigh:    {CPU: resource.MustParse("2"), Memory: resource.MustParse("4Gi")},
}

// DiskBounds is the ephemeral storage range a pod may request on an infra.
type DiskBounds struct {
	Min     resource.Quantity
	Max     resource.Quantity
	Default *resource.Quantity
}

var diskBounds = map[v1alpha1.InfraType]DiskBounds{
	// Fargate task storage range
	v1alpha1.InfraTypeECS: {
		Min:     resource.MustParse("21Gi"),
		Max:     resource.MustParse("200Gi"),
		Default: quantityPtr("21Gi"),
	},
	// GKE Autopilot pod storage range
	v1alpha1.InfraTypeGKE: {
		Min: resource.MustParse("10Mi"),
		Max: resource.MustParse("10Gi"),
	},
	v1alpha1.InfraTypeGiver: {
		Min: resource.MustParse("1Gi"),
		Max: resource.MustParse("100Gi"),
	},
}

func quantityPtr(s string) *resource.Quantity {
	q := resource.MustParse(s)
	return &q
}

// PresetFor returns the limits of a named preset. custom has no entry.
func PresetFor(preset v1alpha1.ResourcePreset) (Preset, bool) {
	p, ok := presets[preset]
	return p, ok
}

func DiskBoundsFor(infraType v1alpha1.InfraType) (DiskBounds, bool) {
	b, ok := diskBounds[infra.Normalize(infraType)]
	return b, ok
}

func presetNames() []string {
	names := make([]string, 0, len(presets)+1)
	for name := range presets {
		names = append(names, string(name))
	}
	names = append(names, string(v1alpha1.ResourcePresetCustom))
	sort.Strings(names)
	return names
}

// ResolveResources resolves the amount preset, or the explicit custom
// values, into limits and checks the disk against the infra's bounds.
func ResolveResources(ctx context.Context, build *v1alpha1.FlowBuildSpec, infraType v1alpha1.InfraType) (v1alpha1.ResourceRequirements, error) {
	logs := logging.FromContext(ctx)

	amount := strings.ToLower(strings.TrimSpace(build.Amount))
	if amount == "" {
		amount = consts.DefaultAmount
	}
	preset := v1alpha1.ResourcePreset(amount)

	res := v1alpha1.ResourceRequirements{
		Preset: preset,
		Limits: corev1.ResourceList{},
	}

	var errs error

	if preset == v1alpha1.ResourcePresetCustom {
		for _, item := range []struct {
			field string
			name  corev1.ResourceName
			value v1alpha1.QuantityValue
		}{
			{field: "cpu", name: corev1.ResourceCPU, value: build.CPU},
			{field: "memory", name: corev1.ResourceMemory, value: build.Memory},
		} {
			q, err := parsePositive(item.field, item.value, true)
			if err != nil {
				errs = errors.Append(errs, err)
				continue
			}
			res.Limits[item.name] = q
		}
		if !build.Disk.IsSet() {
			errs = errors.Append(errs, fieldError("disk", nil, "is required when amount is custom"))
		}
	} else {
		p, ok := presets[preset]
		if !ok {
			return res, fieldError("amount", build.Amount, "must be one of %s", strings.Join(presetNames(), ", "))
		}
		if build.CPU.IsSet() || build.Memory.IsSet() {
			logs.WithField("amount", amount).Warn("cpu and memory are only used when amount is custom, ignoring them")
		}
		res.Limits[corev1.ResourceCPU] = p.CPU.DeepCopy()
		res.Limits[corev1.ResourceMemory] = p.Memory.DeepCopy()
	}

	bounds, ok := DiskBoundsFor(infraType)
	if !ok {
		return res, errors.Append(errs, fieldError("infra", infraType, "has no disk bounds"))
	}

	if build.Disk.IsSet() {
		disk, err := parsePositive("disk", build.Disk, false)
		if err != nil {
			errs = errors.Append(errs, err)
		} else if disk.Cmp(bounds.Min) < 0 || disk.Cmp(bounds.Max) > 0 {
			errs = errors.Append(errs, fieldError("disk", build.Disk, "must be between %s and %s on %s", bounds.Min.String(), bounds.Max.String(), infra.Normalize(infraType)))
		} else {
			res.Limits[corev1.ResourceEphemeralStorage] = disk
		}
	} else if bounds.Default != nil {
		res.Limits[corev1.ResourceEphemeralStorage] = bounds.Default.DeepCopy()
	}

	return res, errs
}

func parsePositive(field string, value v1alpha1.QuantityValue, required bool) (resource.Quantity, error) {
	if !value.IsSet() {
		if required {
			return resource.Quantity{}, fieldError(field, nil, "is required when amount is custom")
		}
		return resource.Quantity{}, nil
	}
	q, err := resource.ParseQuantity(strings.TrimSpace(value.String()))
	if err != nil {
		return resource.Quantity{}, fieldError(field, value, "is not a valid quantity")
	}
	if q.Sign() <= 0 {
		return resource.Quantity{}, fieldError(field, value, "must be greater than zero")
	}
	return q, nil
}
