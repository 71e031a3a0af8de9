package xdelta

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRun struct {
	name string
	args []string
}

func fakeRunner(calls *[]recordedRun, output []byte, err error) runFunc {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, recordedRun{name: name, args: args})
		return output, err
	}
}

func TestDecode_InvokesXdelta3(t *testing.T) {
	var calls []recordedRun
	codec := &Codec{run: fakeRunner(&calls, nil, nil)}

	err := codec.Decode(context.Background(), "Fallout4.exe_downgradeBackup", "patch.xdelta", "Fallout4.exe")

	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, ExecutableName, calls[0].name)
	assert.Equal(t, []string{"-d", "-f", "-s", "Fallout4.exe_downgradeBackup", "patch.xdelta", "Fallout4.exe"}, calls[0].args)
}

func TestEncode_InvokesXdelta3(t *testing.T) {
	var calls []recordedRun
	codec := &Codec{run: fakeRunner(&calls, nil, nil)}

	err := codec.Encode(context.Background(), "old.exe", "new.exe", "old-to-new.xdelta")

	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"-e", "-f", "-s", "old.exe", "new.exe", "old-to-new.xdelta"}, calls[0].args)
}

func TestInvoke_MissingExecutable(t *testing.T) {
	var calls []recordedRun
	codec := &Codec{run: fakeRunner(&calls, nil, &exec.Error{Name: ExecutableName, Err: exec.ErrNotFound})}

	err := codec.Decode(context.Background(), "source", "patch", "output")

	assert.ErrorIs(t, err, ErrXdeltaNotFound)
}

func TestInvoke_FailureSurfacesStderr(t *testing.T) {
	var calls []recordedRun
	codec := &Codec{run: fakeRunner(&calls, []byte("xdelta3: target window checksum mismatch\n"), errors.New("exit status 1"))}

	err := codec.Decode(context.Background(), "source", "patch", "output")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "xdelta3 decode failed")
	assert.Contains(t, err.Error(), "target window checksum mismatch")
	assert.Contains(t, err.Error(), "exit status 1")
}

func TestInvoke_FailureWithoutOutput(t *testing.T) {
	var calls []recordedRun
	codec := &Codec{run: fakeRunner(&calls, nil, errors.New("exit status 2"))}

	err := codec.Encode(context.Background(), "source", "target", "patch")

	require.Error(t, err)
	assert.Equal(t, "xdelta3 encode failed: exit status 2", err.Error())
}

func TestNew_UsesRealRunner(t *testing.T) {
	codec := New()
	require.NotNil(t, codec.run)
}
