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
	"context"
	"fmt"
	"strings"

	"emperror.dev/errors"
	"github.com/huandu/xstrings"
	"github.com/prune998/docker-registry-client/registry"
	"github.com/sirupsen/logrus"

	"github.com/rajjj/narwhal-world/internal/config"
	"github.com/rajjj/narwhal-world/internal/consts"
	"github.com/rajjj/narwhal-world/internal/logging"
)

type TagLister interface {
	Tags(repository string) ([]string, error)
}

// Checker looks images up in a docker v2 registry.
type Checker struct {
	conf      *config.DockerRegistryConfig
	newLister func(server, username, password string) (TagLister, error)
}

func NewChecker(conf *config.DockerRegistryConfig) *Checker {
	return &Checker{
		conf: conf,
		newLister: func(server, username, password string) (TagLister, error) {
			return registry.New(server, username, password, logrus.Debugf)
		},
	}
}

// Reference splits an image name into registry server, repository and tag.
// A missing tag means latest.
func Reference(imageName string) (server, repository, tag string) {
	server, _, rest := xstrings.Partition(imageName, "/")
	repository = rest
	if idx := strings.LastIndex(rest, ":"); idx > strings.LastIndex(rest, "/") {
		repository, _, tag = xstrings.LastPartition(rest, ":")
	}
	if tag == "" {
		tag = consts.BaseImageTagLatest
	}
	return server, repository, tag
}

// Exists reports whether the image's tag is present in its registry.
func (c *Checker) Exists(ctx context.Context, imageName string) (bool, error) {
	logs := logging.FromContext(ctx).WithField("image", imageName)

	server, repository, tag := Reference(imageName)
	if c.conf.Server != "" {
		server = c.conf.Server
	}
	if strings.Contains(server, "docker.io") {
		server = "index.docker.io"
	}
	if c.conf.Secure {
		server = fmt.Sprintf("https://%s", server)
	} else {
		server = fmt.Sprintf("http://%s", server)
	}

	hub, err := c.newLister(server, c.conf.Username, c.conf.Password)
	if err != nil {
		err = errors.Wrapf(err, "create docker registry client for %s", server)
		return false, err
	}
	tags, err := hub.Tags(repository)
	isNotFound := err != nil && strings.Contains(err.Error(), "404")
	if isNotFound {
		logs.Debug("repository not found")
		return false, nil
	}
	if err != nil {
		err = errors.Wrapf(err, "get tags for docker image %s", repository)
		return false, err
	}
	for _, tag_ := range tags {
		if tag_ == tag {
			return true, nil
		}
	}
	return false, nil
}
