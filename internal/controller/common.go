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

package controller

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"

	"emperror.dev/errors"
	"github.com/apparentlymart/go-shquot/shquot"
	"github.com/sirupsen/logrus"

	"github.com/rajjj/narwhal-world/api/nps/schemas"
	"github.com/rajjj/narwhal-world/internal/controller_common"
)

const (
	EventTypeNormal  = "Normal"
	EventTypeWarning = "Warning"
)

// EventRecorder records what happened to a flow while it was deployed.
type EventRecorder interface {
	Eventf(flow string, eventType, reason, messageFmt string, args ...interface{})
}

// LogRecorder writes events to the deployer log.
type LogRecorder struct {
	Logger logrus.FieldLogger
}

func (r *LogRecorder) Eventf(flow string, eventType, reason, messageFmt string, args ...interface{}) {
	entry := r.Logger.WithFields(logrus.Fields{"flow": flow, "reason": reason})
	if eventType == EventTypeWarning {
		entry.Warnf(messageFmt, args...)
		return
	}
	entry.Infof(messageFmt, args...)
}

type CommandRunner interface {
	Run(ctx context.Context, dir string, name string, args ...string) error
}

// ExecRunner runs commands as subprocesses of the deployer.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (r *ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	return errors.Wrapf(cmd.Run(), "run %s", commandLine(name, args...))
}

func commandLine(name string, args ...string) string {
	return shquot.POSIXShell(append([]string{name}, args...))
}

type ImageChecker interface {
	Exists(ctx context.Context, image string) (bool, error)
}

type OrchestratorClient interface {
	controller_common.DeploymentClient
	CreateFlow(ctx context.Context, name string) (*schemas.Flow, error)
}

// Credentials tells the flow runtime which federation pool it runs under.
type Credentials struct {
	InfraType string `json:"infra_type"`
	Cloud     string `json:"cloud"`
}

func writeCredentials(path string, creds Credentials) error {
	content, err := json.Marshal(creds)
	if err != nil {
		return errors.Wrap(err, "marshal credentials")
	}
	return errors.Wrapf(os.WriteFile(path, content, 0o644), "write credentials %s", path)
}
