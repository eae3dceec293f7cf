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

package image

import (
	"fmt"
	"strings"

	"emperror.dev/errors"
	"github.com/huandu/xstrings"

	"github.com/rajjj/narwhal-world/api/v1alpha1"
	"github.com/rajjj/narwhal-world/internal/config"
	"github.com/rajjj/narwhal-world/internal/consts"
	"github.com/rajjj/narwhal-world/internal/infra"
)

// Registry is where a flow image is pushed. Name is the CI's short name for it.
type Registry struct {
	Host string
	Name string
}

type BaseImage struct {
	// pyver-<x.y>, used to tag builds
	PyVerTag string
	Image    string
}

// CloudFromRegistry detects the cloud hosting a registry.
func CloudFromRegistry(registry string) v1alpha1.CloudVendor {
	host, _, _ := xstrings.Partition(registry, "/")
	switch {
	case strings.Contains(host, consts.RegistryAWSHostMarker):
		return v1alpha1.CloudVendorAWS
	case strings.Contains(host, consts.RegistryGCPHostMarker):
		return v1alpha1.CloudVendorGCP
	default:
		return v1alpha1.CloudVendorAzure
	}
}

var registryNames = map[v1alpha1.CloudVendor]string{
	v1alpha1.CloudVendorAWS:   consts.RegistryAWSName,
	v1alpha1.CloudVendorGCP:   consts.RegistryGCPName,
	v1alpha1.CloudVendorAzure: consts.RegistryAzureName,
}

// ExplicitRegistry wraps a registry given on the command line.
func ExplicitRegistry(host string) Registry {
	return Registry{Host: strings.TrimSuffix(host, "/"), Name: registryNames[CloudFromRegistry(host)]}
}

func SelectRegistry(cloud v1alpha1.CloudVendor, conf *config.RegistryConfig) (Registry, error) {
	switch cloud {
	case v1alpha1.CloudVendorAWS:
		if conf.AWSAccountID == "" {
			return Registry{}, errors.New("aws account id is not configured")
		}
		return Registry{Host: fmt.Sprintf(consts.RegistryAWSHostFormat, conf.AWSAccountID), Name: consts.RegistryAWSName}, nil
	case v1alpha1.CloudVendorGCP:
		if conf.GCPProject == "" {
			return Registry{}, errors.New("gcp project is not configured")
		}
		return Registry{Host: fmt.Sprintf(consts.RegistryGCPHostFormat, conf.GCPProject), Name: consts.RegistryGCPName}, nil
	case v1alpha1.CloudVendorAzure:
		return Registry{Host: consts.RegistryAzureHost, Name: consts.RegistryAzureName}, nil
	}
	return Registry{}, errors.Errorf("no registry for cloud %q", cloud)
}

// Name returns the flow image. Giver runs in eu-west-1, so giver flows and
// eu flows pull from the eu replica of the registry.
func Name(registry string, flow *v1alpha1.FlowDeployment) string {
	if flow.Region == v1alpha1.RegionEU || infra.Normalize(flow.Infra) == v1alpha1.InfraTypeGiver {
		registry = strings.ReplaceAll(registry, consts.RegionUSEast1, consts.RegionEUWest1)
	}
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(registry, "/"), flow.ScriptName)
}

// BaseImageFor selects the python base image the flow image builds from.
func BaseImageFor(pyver string, conf *config.RegistryConfig) (BaseImage, error) {
	var name string
	switch pyver {
	case "3.9":
		name = "python_base_39"
	case "3.11":
		name = "python_base_311"
	case "3.13":
		name = "python_base_313"
	default:
		return BaseImage{}, errors.Errorf("no base image for python %q", pyver)
	}

	registry := conf.PrivateRegistry
	if registry == "" {
		if conf.AWSAccountID == "" {
			return BaseImage{}, errors.New("private registry is not configured")
		}
		registry = fmt.Sprintf(consts.RegistryAWSHostFormat, conf.AWSAccountID)
	}

	return BaseImage{
		PyVerTag: consts.BaseImagePyVerTagBase + pyver,
		Image:    fmt.Sprintf("%s/%s:%s", registry, name, consts.BaseImageTagLatest),
	}, nil
}
