// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package swebench

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sweagent-dev/sweagent/pkg/ptr"
)

// Slice selects a subrange of instances with Python "start:stop:step"
// semantics: omitted fields default, negative indices count from the end,
// and out-of-range bounds clamp instead of erroring.
type Slice struct {
	Start *int
	Stop  *int
	Step  *int
}

// ParseSlice parses a slice specification. A bare number is a stop, so "5"
// selects the first five instances. Steps must be positive.
func ParseSlice(spec string) (*Slice, error) {
	if spec == "" {
		return &Slice{}, nil
	}
	parts := strings.Split(spec, ":")
	if len(parts) > 3 {
		return nil, fmt.Errorf("invalid slice specification: %s", spec)
	}
	values := make([]*int, len(parts))
	for i, part := range parts {
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid slice specification: %s", spec)
		}
		values[i] = ptr.Of(n)
	}
	var s Slice
	switch len(parts) {
	case 1:
		s.Stop = values[0]
	case 2:
		s.Start, s.Stop = values[0], values[1]
	case 3:
		s.Start, s.Stop, s.Step = values[0], values[1], values[2]
	}
	if s.Step != nil {
		if *s.Step == 0 {
			return nil, errors.New("slice step cannot be zero")
		}
		if *s.Step < 0 {
			return nil, fmt.Errorf("negative slice step is not supported: %s", spec)
		}
	}
	return &s, nil
}

// Apply returns the instances the slice selects, in order.
func (s *Slice) Apply(instances []Instance) []Instance {
	start, stop, step := s.indices(len(instances))
	selected := make([]Instance, 0, len(instances))
	for i := start; i < stop; i += step {
		selected = append(selected, instances[i])
	}
	return selected
}

// indices resolves the slice against a sequence of length n, clamping the
// bounds the way Python's slice.indices does for positive steps.
func (s *Slice) indices(n int) (start, stop, step int) {
	step = 1
	if s.Step != nil {
		step = *s.Step
	}
	start = 0
	if s.Start != nil {
		start = *s.Start
		if start < 0 {
			start = max(n+start, 0)
		} else if start > n {
			start = n
		}
	}
	stop = n
	if s.Stop != nil {
		stop = *s.Stop
		if stop < 0 {
			stop = max(n+stop, 0)
		} else if stop > n {
			stop = n
		}
	}
	return start, stop, step
}
