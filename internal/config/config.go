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

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/rajjj/narwhal-world/internal/consts"
	envconsts "github.com/rajjj/narwhal-world/pkg/nps/consts"
)

type OrchestratorConfig struct {
	Endpoint string `yaml:"endpoint"`
	ApiKey   string `yaml:"api_key"`
	Version  string `yaml:"version"`
}

func GetOrchestratorConfig() (conf *OrchestratorConfig, err error) {
	return &OrchestratorConfig{
		Endpoint: strings.TrimSuffix(os.Getenv(envconsts.EnvOrchestratorEndpoint), "/"),
		ApiKey:   os.Getenv(envconsts.EnvOrchestratorApiKey),
		Version:  getEnv(envconsts.EnvOrchestratorVersion, consts.DefaultOrchestratorVersion),
	}, nil
}

// RegistryConfig locates the per-cloud image registries.
type RegistryConfig struct {
	AWSAccountID    string `yaml:"aws_account_id"`
	GCPProject      string `yaml:"gcp_project"`
	PrivateRegistry string `yaml:"private_registry"`
}

func GetRegistryConfig() *RegistryConfig {
	return &RegistryConfig{
		AWSAccountID:    os.Getenv(envconsts.EnvAWSAccountID),
		GCPProject:      os.Getenv(envconsts.EnvGCPProject),
		PrivateRegistry: os.Getenv(envconsts.EnvAWSPrivateRegistry),
	}
}

type DockerRegistryConfig struct {
	Server   string `yaml:"server"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Secure   bool   `yaml:"secure"`
}

func GetDockerRegistryConfig() (conf *DockerRegistryConfig, err error) {
	return &DockerRegistryConfig{
		Server:   os.Getenv(envconsts.EnvDockerRegistryServer),
		Username: os.Getenv(envconsts.EnvDockerRegistryUsername),
		Password: os.Getenv(envconsts.EnvDockerRegistryPassword),
		Secure:   getEnv(envconsts.EnvDockerRegistrySecure, "true") == "true",
	}, nil
}

type DeployerConfig struct {
	SubmitMode     string        `yaml:"submit_mode"`
	CreateOnly     bool          `yaml:"create_only"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

func GetDeployerConfig() (conf *DeployerConfig, err error) {
	conf = &DeployerConfig{
		SubmitMode: getEnv(envconsts.EnvDeployerSubmitMode, consts.SubmitModeCLI),
	}

	createOnly := getEnv(envconsts.EnvDeployerCreateOnly, "false")
	conf.CreateOnly, err = strconv.ParseBool(createOnly)
	if err != nil {
		err = errors.Wrapf(err, "parse %s=%q", envconsts.EnvDeployerCreateOnly, createOnly)
		return
	}

	timeout := getEnv(envconsts.EnvDeployerRequestLimit, consts.DefaultRequestTimeout)
	conf.RequestTimeout, err = time.ParseDuration(timeout)
	if err != nil {
		err = errors.Wrapf(err, "parse %s=%q", envconsts.EnvDeployerRequestLimit, timeout)
		return
	}

	switch conf.SubmitMode {
	case consts.SubmitModeCLI, consts.SubmitModeAPI:
	default:
		err = errors.Errorf("%s must be %q or %q, got %q", envconsts.EnvDeployerSubmitMode, consts.SubmitModeCLI, consts.SubmitModeAPI, conf.SubmitMode)
	}
	return
}

// CheckTemplateVersion fails when the flow template the build runs from does
// not match the version this deployer understands.
func CheckTemplateVersion() error {
	if skip, _ := strconv.ParseBool(os.Getenv(envconsts.EnvSkipTemplateVersion)); skip {
		return nil
	}
	version, ok := os.LookupEnv(envconsts.EnvTemplateVersion)
	if !ok || version == "" {
		return errors.Errorf("%s is not set, rebuild the flow from the %s template", envconsts.EnvTemplateVersion, consts.TemplateVersion)
	}
	if version != consts.TemplateVersion {
		return errors.Errorf("flow template version %s is not supported, update the flow to the %s template", version, consts.TemplateVersion)
	}
	return nil
}

func GetWorkDir() (string, error) {
	if dir := os.Getenv(envconsts.EnvWorkDir); dir != "" {
		return dir, nil
	}
	dir, err := os.Getwd()
	return dir, errors.Wrap(err, "get working directory")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
