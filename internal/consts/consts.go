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
	DeployerName = "nps-deployer"

	TemplateVersion = "6.0"

	ManifestFileName   = "pyproject.toml"
	ManifestBuildTable = "sama-build"
	DeployFileName     = "deploy.json"
	CredFileName       = "cred.json"
	BuildEnvFileName   = "sama_build.env"

	DeploymentFileSuffix = "_deployment.yaml"

	DefaultProjectVersion      = "1.0.0"
	DefaultOrchestratorVersion = "2.20.16"

	DefaultAmount    = "low"
	DefaultPyVer     = "3.11"
	DefaultInfra     = "giver"
	DefaultCloud     = "aws"
	DefaultRegion    = "us"
	DefaultDeployNum = 1
	MaxDeployNum     = 100

	DefaultWorkspace    = "prod"
	DeprecatedWorkspace = "test"

	QueuePrefix        = "narq"
	WorkPoolGiver      = "giver"
	WorkPoolGKE        = "narpool-gke-eu"
	WorkPoolPrefix     = "narpool"
	FlowCloudStorage   = "narwhal-flow-store"
	FlowCredentialsRef = "{{ prefect.blocks.aws-credentials.aws-prefect-sa }}"

	StepPushToS3   = "prefect_aws.deployments.steps.push_to_s3"
	StepPullFromS3 = "prefect_aws.deployments.steps.pull_from_s3"

	RegionUSEast1 = "us-east-1"
	RegionEUWest1 = "eu-west-1"

	RegistryAWSHostFormat = "%s.dkr.ecr.us-east-1.amazonaws.com"
	RegistryGCPHostFormat = "us-central1-docker.pkg.dev/%s/narwhal-docker"
	RegistryAzureHost     = "narwhalazure.azurecr.io"
	RegistryAWSName       = "narwhal-ecr"
	RegistryGCPName       = "narwhal-docker"
	RegistryAzureName     = "narwhalazure"
	RegistryGCPHostMarker = "docker.pkg.dev"
	RegistryAWSHostMarker = "aws"

	BaseImageTagLatest    = "latest"
	BaseImagePyVerTagBase = "pyver-"
	ExtensionSlam         = "slam"
	EngineModule          = "prefect.engine"
	EngineInterpreter     = "python"

	DeploymentNameSuffix = "_deploy"
	ECSJobNameSuffix     = "_ecs_job"

	SpecHashTagPrefix     = "nps.io/last-applied-hash="
	RequestIDHeader       = "X-Request-Id"
	DefaultRequestTimeout = "90s"
	SubmitModeCLI         = "cli"
	SubmitModeAPI         = "api"
	OrchestratorCLI       = "prefect"

	InfraTypeFileGiver     = "giver"
	InfraTypeFileNarwhal   = "narwhal"
	DeprecationWarningNote = "deprecated and ignored"
)
