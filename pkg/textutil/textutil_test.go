// SPDX-FileCopyrightText: Copyright The Sweagent Authors
// SPDX-License-Identifier: Apache-2.0

package textutil

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestExecuteTemplate(t *testing.T) {
	args := struct {
		Name string
		Dir  string
	}{Name: "20250108_120000_gpt-4_astropy_astropy-12907", Dir: "/tmp/workspaces/x"}

	b, err := ExecuteTemplate("{{.Name}}\t{{.Dir}}", args)
	assert.NilError(t, err)
	assert.Equal(t, string(b), "20250108_120000_gpt-4_astropy_astropy-12907\t/tmp/workspaces/x")

	b, err = ExecuteTemplate("{{json .}}", args)
	assert.NilError(t, err)
	assert.Equal(t, string(b), `{"Name":"20250108_120000_gpt-4_astropy_astropy-12907","Dir":"/tmp/workspaces/x"}`)

	_, err = ExecuteTemplate("{{.Name", args)
	assert.Assert(t, err != nil)
}
