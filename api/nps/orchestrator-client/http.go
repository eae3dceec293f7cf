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
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"emperror.dev/errors"
	"resty.dev/v3"
)

var defaultClient *resty.Client

func GetDefaultClient() *resty.Client {
	if defaultClient == nil {
		defaultClient = resty.New().
			SetTimeout(90*time.Second).
			SetRetryCount(3).
			SetRetryWaitTime(2*time.Second).
			SetRetryMaxWaitTime(10*time.Second).
			SetHeader("Content-Type", "application/json")
	}
	return defaultClient
}

// HTTPError is returned for any non-2xx orchestrator response.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	// Detail is the orchestrator's own explanation, when the body carries one.
	Detail string
}

func (e *HTTPError) Error() string {
	reason := e.Detail
	if reason == "" {
		reason = e.Body
	}
	return fmt.Sprintf("http %s %s failed with status %d: %s", e.Method, e.URL, e.StatusCode, reason)
}

type errorBody struct {
	Detail           json.RawMessage   `json:"detail"`
	ExceptionMessage string            `json:"exception_message"`
	ExceptionDetail  []validationIssue `json:"exception_detail"`
}

type validationIssue struct {
	Loc []interface{} `json:"loc"`
	Msg string        `json:"msg"`
}

func (i validationIssue) String() string {
	loc := make([]string, 0, len(i.Loc))
	for _, part := range i.Loc {
		loc = append(loc, fmt.Sprint(part))
	}
	if len(loc) == 0 {
		return i.Msg
	}
	return strings.Join(loc, ".") + ": " + i.Msg
}

func joinIssues(issues []validationIssue) string {
	out := make([]string, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issue.String())
	}
	return strings.Join(out, "; ")
}

// parseErrorDetail reads `{"detail": "..."}`, `{"detail": [issues]}` and the
// `exception_message`/`exception_detail` validation report.
func parseErrorDetail(body string) string {
	var parsed errorBody
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return ""
	}

	if len(parsed.ExceptionDetail) > 0 {
		issues := joinIssues(parsed.ExceptionDetail)
		if parsed.ExceptionMessage == "" {
			return issues
		}
		return parsed.ExceptionMessage + " " + issues
	}
	if parsed.ExceptionMessage != "" {
		return parsed.ExceptionMessage
	}

	if len(parsed.Detail) == 0 {
		return ""
	}
	var detail string
	if err := json.Unmarshal(parsed.Detail, &detail); err == nil {
		return detail
	}
	var issues []validationIssue
	if err := json.Unmarshal(parsed.Detail, &issues); err == nil {
		return joinIssues(issues)
	}
	return ""
}

func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}

func DoJsonRequest(ctx context.Context, method string, url string, headers map[string]string, query map[string]string, payload interface{}, result interface{}, timeout *time.Duration) (int, error) {
	client := GetDefaultClient()

	if timeout != nil {
		client.SetTimeout(*timeout)
	}

	req := client.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetQueryParams(query)
	if payload != nil {
		req.SetBody(payload)
	}
	if result != nil {
		req.SetResult(result)
	}

	var resp *resty.Response
	var err error

	switch method {
	case http.MethodGet:
		resp, err = req.Get(url)
	case http.MethodPost:
		resp, err = req.Post(url)
	case http.MethodPut:
		resp, err = req.Put(url)
	case http.MethodDelete:
		resp, err = req.Delete(url)
	case http.MethodPatch:
		resp, err = req.Patch(url)
	default:
		return 0, errors.Errorf("unsupported method: %s", method)
	}

	if err != nil {
		return 0, errors.Wrapf(err, "request %s %s", method, url)
	}

	if resp.IsError() {
		return resp.StatusCode(), &HTTPError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode(),
			Body:       resp.String(),
			Detail:     parseErrorDetail(resp.String()),
		}
	}

	return resp.StatusCode(), nil
}
