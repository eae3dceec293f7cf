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

package schemas

import (
	"encoding/json"
	"time"

	"emperror.dev/errors"
)

type Flow struct {
	ID   string   `json:"id,omitempty"`
	Name string   `json:"name"`
	Tags []string `json:"tags,omitempty"`
}

type FlowCreate struct {
	Name string   `json:"name"`
	Tags []string `json:"tags,omitempty"`
}

// Duration is an interval expressed on the wire as a number of seconds.
// Strings in time.ParseDuration format are accepted when decoding.
type Duration time.Duration

func (d Duration) Seconds() float64 {
	return time.Duration(d).Seconds()
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Seconds())
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Seconds(), nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var v any
	if err := unmarshal(&v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) set(v any) error {
	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value * float64(time.Second)))
	case int:
		*d = Duration(time.Duration(value) * time.Second)
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return errors.Wrapf(err, "parse interval %q", value)
		}
		*d = Duration(tmp)
	default:
		return errors.Errorf("invalid interval %v", v)
	}
	return nil
}

type Schedule struct {
	Cron       string    `json:"cron,omitempty"`
	DayOr      *bool     `json:"day_or,omitempty"`
	Interval   *Duration `json:"interval,omitempty"`
	AnchorDate string    `json:"anchor_date,omitempty"`
	RRule      string    `json:"rrule,omitempty"`
	Timezone   string    `json:"timezone,omitempty"`
}

type DeploymentCreate struct {
	Name          string                   `json:"name"`
	FlowID        string                   `json:"flow_id"`
	Version       string                   `json:"version,omitempty"`
	Description   *string                  `json:"description,omitempty"`
	Tags          []string                 `json:"tags"`
	Schedule      *Schedule                `json:"schedule,omitempty"`
	IsScheduleOn  *bool                    `json:"is_schedule_active,omitempty"`
	Parameters    map[string]interface{}   `json:"parameters"`
	Entrypoint    string                   `json:"entrypoint"`
	WorkPoolName  string                   `json:"work_pool_name"`
	WorkQueueName string                   `json:"work_queue_name"`
	JobVariables  map[string]interface{}   `json:"job_variables"`
	PullSteps     []map[string]interface{} `json:"pull_steps,omitempty"`
}

type Deployment struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	FlowID        string                 `json:"flow_id"`
	Version       string                 `json:"version,omitempty"`
	Tags          []string               `json:"tags"`
	Schedule      *Schedule              `json:"schedule,omitempty"`
	Parameters    map[string]interface{} `json:"parameters,omitempty"`
	Entrypoint    string                 `json:"entrypoint,omitempty"`
	WorkPoolName  string                 `json:"work_pool_name,omitempty"`
	WorkQueueName string                 `json:"work_queue_name,omitempty"`
	JobVariables  map[string]interface{} `json:"job_variables,omitempty"`
	Created       *time.Time             `json:"created,omitempty"`
	Updated       *time.Time             `json:"updated,omitempty"`
}
