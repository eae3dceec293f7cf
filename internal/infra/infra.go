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

package infra

import (
	"fmt"
	"strconv"

	"emperror.dev/errors"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/rajjj/narwhal-world/api/v1alpha1"
	"github.com/rajjj/narwhal-world/internal/consts"
)

const (
	ecsUnitsPerVCPU = 1024
	ecsMiBPerGiB    = 1024
	ecsMinMemoryMiB = 512
	gib             = int64(1) << 30
)

// Normalize maps the legacy narwhal name onto ecs. Other values pass through.
func Normalize(infra v1alpha1.InfraType) v1alpha1.InfraType {
	if infra == v1alpha1.InfraTypeNarwhal {
		return v1alpha1.InfraTypeECS
	}
	return infra
}

func IsKnown(infra v1alpha1.InfraType) bool {
	switch Normalize(infra) {
	case v1alpha1.InfraTypeGiver, v1alpha1.InfraTypeECS, v1alpha1.InfraTypeGKE:
		return true
	}
	return false
}

func WorkPoolName(infra v1alpha1.InfraType, cloud v1alpha1.CloudVendor, region v1alpha1.Region) string {
	switch Normalize(infra) {
	case v1alpha1.InfraTypeGiver:
		return consts.WorkPoolGiver
	case v1alpha1.InfraTypeGKE:
		return consts.WorkPoolGKE
	}
	if cloud == v1alpha1.CloudVendorAWS {
		return fmt.Sprintf("%s-%s-%s", consts.WorkPoolPrefix, cloud, region)
	}
	return fmt.Sprintf("%s-%s", consts.WorkPoolPrefix, cloud)
}

// QueueName is the work queue the flow's runs are picked up from. Workers
// poll every queue carrying the prefix.
func QueueName(scriptName string) string {
	return fmt.Sprintf("%s_%s", consts.QueuePrefix, scriptName)
}

// CredentialInfraType is the infra_type written to cred.json.
func CredentialInfraType(infra v1alpha1.InfraType) string {
	if Normalize(infra) == v1alpha1.InfraTypeGiver {
		return consts.InfraTypeFileGiver
	}
	return consts.InfraTypeFileNarwhal
}

// ECSResources converts limits to Fargate task units. Odd vCPU counts above
// one and odd GiB counts above one are rounded up to the next even value,
// memory below 1Gi becomes the 512 MiB minimum.
func ECSResources(cpu, memory resource.Quantity) (cpuUnits int64, memoryMiB int64) {
	milli := cpu.MilliValue()
	if milli%2000 == 1000 && milli != 1000 {
		milli += 1000
	}
	cpuUnits = milli * ecsUnitsPerVCPU / 1000

	if memory.Value() < gib {
		return cpuUnits, ecsMinMemoryMiB
	}
	gi := ceilGiB(memory)
	if gi%2 != 0 && gi != 1 {
		gi++
	}
	return cpuUnits, gi * ecsMiBPerGiB
}

// JobVariables renders the work pool job variables for the flow's infra.
func JobVariables(flow *v1alpha1.FlowDeployment, image string) (map[string]interface{}, error) {
	res := flow.Resources
	cpu := res.CPU()
	memory := res.Memory()
	disk := res.Disk()

	switch Normalize(flow.Infra) {
	case v1alpha1.InfraTypeECS:
		if disk == nil {
			return nil, errors.Errorf("ecs flow %s has no disk size", flow.ScriptName)
		}
		cpuUnits, memoryMiB := ECSResources(cpu, memory)
		return map[string]interface{}{
			"cpu":               cpuUnits,
			"memory":            memoryMiB,
			"image":             image,
			"family":            flow.ScriptName,
			"name":              flow.ScriptName + consts.ECSJobNameSuffix,
			"ephemeral_storage": ceilGiB(*disk),
		}, nil

	case v1alpha1.InfraTypeGKE:
		vars := map[string]interface{}{
			"cpu":    cpuNumber(cpu),
			"memory": memory.String(),
			"image":  image,
		}
		if disk != nil {
			vars["ephemeral_storage"] = ceilGiB(*disk)
		}
		return vars, nil

	case v1alpha1.InfraTypeGiver:
		dsl := map[string]interface{}{
			"steps": []interface{}{
				map[string]interface{}{
					"image":      image,
					"entrypoint": []interface{}{consts.EngineInterpreter, "-m", consts.EngineModule},
					"parameters": []interface{}{},
					"limits": map[string]interface{}{
						"cpu":    cpuString(cpu),
						"memory": memory.String(),
					},
				},
			},
		}
		if disk != nil {
			dsl["volume"] = map[string]interface{}{"size": disk.String()}
		}
		return map[string]interface{}{"dsl": dsl}, nil
	}

	return nil, errors.Errorf("unknown infra %q", flow.Infra)
}

func ceilGiB(q resource.Quantity) int64 {
	return (q.Value() + gib - 1) / gib
}

// cpuNumber keeps whole cores integral in the rendered document.
func cpuNumber(q resource.Quantity) interface{} {
	milli := q.MilliValue()
	if milli%1000 == 0 {
		return milli / 1000
	}
	return float64(milli) / 1000
}

func cpuString(q resource.Quantity) string {
	return strconv.FormatFloat(float64(q.MilliValue())/1000, 'f', -1, 64)
}
