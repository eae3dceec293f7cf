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

package consts

const (
	EnvOrchestratorEndpoint = "PREFECT_API_URL"
	// nolint: gosec
	EnvOrchestratorApiKey  = "PREFECT_API_KEY"
	EnvOrchestratorVersion = "PREFECT_VER"

	EnvTemplateVersion      = "TEMPLATE_VERSION"
	EnvSkipTemplateVersion  = "NPS_SKIP_TEMPLATE_VERSION_CHECK"
	EnvDeployerSubmitMode   = "NPS_SUBMIT_MODE"
	EnvDeployerCreateOnly   = "NPS_CREATE_ONLY"
	EnvDeployerRequestLimit = "NPS_REQUEST_TIMEOUT"

	// registry locations
	EnvAWSPrivateRegistry = "AWS_PRI_REG"
	EnvAWSAccountID       = "NAR_AWS_ID"
	EnvGCPProject         = "GCP_PROJ"

	EnvDockerRegistryServer   = "DOCKER_REGISTRY_SERVER"
	EnvDockerRegistryUsername = "DOCKER_REGISTRY_USERNAME"
	// nolint:gosec
	EnvDockerRegistryPassword = "DOCKER_REGISTRY_PASSWORD"
	EnvDockerRegistrySecure   = "DOCKER_REGISTRY_SECURE"

	EnvWorkDir = "SAMA_WORK_DIR"
)
