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

package resolver

import (
	"strings"
	"time"
	_ "time/tzdata"

	"emperror.dev/errors"
	"github.com/robfig/cron/v3"
	"github.com/teambition/rrule-go"

	"github.com/rajjj/narwhal-world/api/v1alpha1"
)

// MaxRRuleLength is the longest rrule the orchestrator stores.
const MaxRRuleLength = 6500

var anchorDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ValidateSchedule checks that a schedule sets exactly one kind and that the
// kind's fields parse.
func ValidateSchedule(s *v1alpha1.Schedule) error {
	if s == nil {
		return nil
	}

	kinds := s.Kinds()
	switch len(kinds) {
	case 0:
		return errors.New("must set one of cron, interval or rrule")
	case 1:
	default:
		return errors.Errorf("sets more than one of %v", kinds)
	}

	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return errors.Errorf("unknown timezone %q", s.Timezone)
		}
	}

	if s.DayOr != nil && kinds[0] != v1alpha1.ScheduleKindCron {
		return errors.New("day_or only applies to cron schedules")
	}

	switch kinds[0] {
	case v1alpha1.ScheduleKindCron:
		if _, err := cron.ParseStandard(normalizeCron(s.Cron)); err != nil {
			return errors.WrapIff(err, "invalid cron expression %q", s.Cron)
		}

	case v1alpha1.ScheduleKindInterval:
		if s.Interval.Seconds() <= 0 {
			return errors.Errorf("interval must be positive, got %v seconds", s.Interval.Seconds())
		}
		if s.AnchorDate == "" {
			return errors.New("interval schedules need an anchor_date")
		}
		if s.Timezone == "" {
			return errors.New("interval schedules need a timezone")
		}
		if _, err := ParseAnchorDate(s.AnchorDate); err != nil {
			return err
		}

	case v1alpha1.ScheduleKindRRule:
		if len(s.RRule) > MaxRRuleLength {
			return errors.Errorf("rrule is longer than %d characters", MaxRRuleLength)
		}
		if err := validateRRule(s.RRule); err != nil {
			return errors.WrapIff(err, "invalid rrule %q", s.RRule)
		}
	}

	return nil
}

// validateRRule accepts a bare rule as well as a full rule set with
// DTSTART, RDATE and EXDATE lines.
func validateRRule(value string) error {
	value = strings.TrimSpace(value)
	if !strings.Contains(value, "\n") {
		_, err := rrule.StrToRRule(value)
		return err
	}
	_, err := rrule.StrToRRuleSet(value)
	return err
}

// normalizeCron rewrites the day-field extensions the orchestrator accepts
// (L for the last day of the month, N#M and NL for weekdays) to plain
// values so the remaining fields can be checked by the standard parser.
func normalizeCron(expr string) string {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return expr
	}
	fields[2] = mapTokens(fields[2], func(tok string) string {
		switch {
		case tok == "L":
			return "28"
		case strings.HasPrefix(tok, "L-"):
			return "1"
		}
		return tok
	})
	fields[4] = mapTokens(fields[4], func(tok string) string {
		if day, nth, ok := strings.Cut(tok, "#"); ok {
			if len(nth) != 1 || nth < "1" || nth > "5" {
				return tok
			}
			return day
		}
		if len(tok) > 1 && strings.HasSuffix(tok, "L") {
			return strings.TrimSuffix(tok, "L")
		}
		if len(tok) > 1 && strings.HasPrefix(tok, "L") {
			return strings.TrimPrefix(tok, "L")
		}
		return tok
	})
	return strings.Join(fields, " ")
}

func mapTokens(field string, fn func(string) string) string {
	tokens := strings.Split(strings.ToUpper(field), ",")
	for i, tok := range tokens {
		tokens[i] = fn(tok)
	}
	return strings.Join(tokens, ",")
}

// ParseAnchorDate accepts ISO-8601 date-times with or without an offset.
func ParseAnchorDate(value string) (time.Time, error) {
	for _, layout := range anchorDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("anchor_date %q is not an ISO-8601 date-time", value)
}
