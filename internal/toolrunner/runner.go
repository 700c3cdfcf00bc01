// Package toolrunner wraps the external tools at the system boundary
// (createrepo_c, rpm, dpkg-deb). The engine packages do
// not call these in the hot path — inspect and rpmmeta/debmeta parse
// package and metadata formats natively in Go — but operators running
// against a host that still drives createrepo_c for a side-by-side
// comparison, or a future generator mode that shells out, need a thin,
// mockable seam rather than a direct os/exec call sprinkled through
// business logic. Runner is that seam.
package toolrunner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/repogen/reposync/internal/repoerr"
)

// Runner executes a named external tool with arguments and returns its
// captured stdout. Implementations must treat a non-zero exit as an
// error rather than panicking or silently swallowing it.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs tools via os/exec, the production implementation.
type ExecRunner struct{}

// NewExecRunner returns the production Runner.
func NewExecRunner() *ExecRunner { return &ExecRunner{} }

// Run invokes name with args, returning stdout. A non-zero exit or a
// missing binary is wrapped as repoerr.KindMalformedPackage, since
// every current caller uses Runner to extract fields from a package
// file whose absence of tooling support means the input can't be
// processed.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, repoerr.Newf(repoerr.KindMalformedPackage, "", "%s %v: %v: %s", name, args, err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// StubRunner is a mockable Runner for tests: it records every
// invocation and returns a canned response keyed by the tool name, so
// a Runner caller can be tested without createrepo_c/rpm/dpkg-deb on PATH.
type StubRunner struct {
	Responses map[string][]byte
	Errors map[string]error
	Calls []StubCall
}

// StubCall records one Run invocation against a StubRunner.
type StubCall struct {
	Name string
	Args []string
}

// NewStubRunner returns an empty StubRunner; populate Responses/Errors
// before use.
func NewStubRunner() *StubRunner {
	return &StubRunner{Responses: map[string][]byte{}, Errors: map[string]error{}}
}

// Run records the call and returns the canned response or error for
// name, failing with KindMalformedPackage if neither was registered.
func (r *StubRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.Calls = append(r.Calls, StubCall{Name: name, Args: args})

	if err, ok := r.Errors[name]; ok {
		return nil, err
	}
	if resp, ok := r.Responses[name]; ok {
		return resp, nil
	}
	return nil, repoerr.Newf(repoerr.KindMalformedPackage, "", "toolrunner: no stub response registered for %q", name)
}

var _ Runner = (*ExecRunner)(nil)
var _ Runner = (*StubRunner)(nil)

// LocateTool returns the PATH location of name, or an error wrapping
// exec.LookPath's when the binary cannot be found, so callers can
// distinguish "not installed" from "ran and failed".
func LocateTool(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("toolrunner: %s not found on PATH: %w", name, err)
	}
	return path, nil
}
