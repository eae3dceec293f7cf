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

package orchestratorclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rajjj/narwhal-world/api/nps/schemas"
	"github.com/rajjj/narwhal-world/internal/consts"
)

const AuthorizationHeaderName = "Authorization"

type OrchestratorClient struct {
	endpoint  string
	apiKey    string
	requestID string
	timeout   *time.Duration
}

func NewOrchestratorClient(endpoint, apiKey string) *OrchestratorClient {
	return &OrchestratorClient{
		endpoint: endpoint,
		apiKey:   apiKey,
	}
}

// SetRequestID tags every request with the deployer run id.
func (c *OrchestratorClient) SetRequestID(id string) {
	c.requestID = id
}

func (c *OrchestratorClient) SetTimeout(timeout time.Duration) {
	c.timeout = &timeout
}

func (c *OrchestratorClient) getHeaders() map[string]string {
	headers := map[string]string{}
	if c.apiKey != "" {
		headers[AuthorizationHeaderName] = "Bearer " + c.apiKey
	}
	if c.requestID != "" {
		headers[consts.RequestIDHeader] = c.requestID
	}
	return headers
}

// CreateFlow registers the flow by name. The orchestrator returns the
// existing flow when one with the same name is already registered.
func (c *OrchestratorClient) CreateFlow(ctx context.Context, name string) (flow *schemas.Flow, err error) {
	url_ := urlJoin(c.endpoint, "/flows/")
	flow = &schemas.Flow{}
	_, err = DoJsonRequest(ctx, http.MethodPost, url_, c.getHeaders(), nil, &schemas.FlowCreate{Name: name}, flow, c.timeout)
	return
}

func (c *OrchestratorClient) GetDeploymentByName(ctx context.Context, flowName, deploymentName string) (deployment *schemas.Deployment, err error) {
	url_ := urlJoin(c.endpoint, fmt.Sprintf("/deployments/name/%s/%s", url.PathEscape(flowName), url.PathEscape(deploymentName)))
	deployment = &schemas.Deployment{}
	_, err = DoJsonRequest(ctx, http.MethodGet, url_, c.getHeaders(), nil, nil, deployment, c.timeout)
	return
}

// CreateDeployment upserts a deployment keyed by flow id and name.
func (c *OrchestratorClient) CreateDeployment(ctx context.Context, payload *schemas.DeploymentCreate) (deployment *schemas.Deployment, err error) {
	url_ := urlJoin(c.endpoint, "/deployments/")
	deployment = &schemas.Deployment{}
	_, err = DoJsonRequest(ctx, http.MethodPost, url_, c.getHeaders(), nil, payload, deployment, c.timeout)
	return
}

func urlJoin(baseURL string, pathPart string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(pathPart, "/")
}
