package toolrunner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubRunnerReturnsCannedResponse(t *testing.T) {
	r := NewStubRunner()
	r.Responses["rpm"] = []byte("Name: hello\n")

	out, err := r.Run(context.Background(), "rpm", "-qp", "--queryformat", "%{NAME}")
	require.NoError(t, err)
	assert.Equal(t, "Name: hello\n", string(out))
	require.Len(t, r.Calls, 1)
	assert.Equal(t, "rpm", r.Calls[0].Name)
}

func TestStubRunnerReturnsCannedError(t *testing.T) {
	r := NewStubRunner()
	wantErr := errors.New("exit status 1")
	r.Errors["dpkg-deb"] = wantErr

	_, err := r.Run(context.Background(), "dpkg-deb", "-f", "pkg.deb")
	assert.Equal(t, wantErr, err)
}

func TestStubRunnerUnregisteredToolFails(t *testing.T) {
	r := NewStubRunner()
	_, err := r.Run(context.Background(), "createrepo_c")
	require.Error(t, err)
}
