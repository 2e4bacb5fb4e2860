package wsl

import (
	"context"
	"os/exec"
	"testing"

	"github.com/felixgeelhaar/wslboot/internal/domain/sequence"
	"github.com/felixgeelhaar/wslboot/internal/ports"
	"github.com/felixgeelhaar/wslboot/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
)

func utf16le(t *testing.T, s string) string {
	t.Helper()
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().String(s)
	require.NoError(t, err)
	return out
}

func TestDecodeOutput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "utf8 passes through",
			input: "conda 23.7.4\n",
			want:  "conda 23.7.4\n",
		},
		{
			name:  "utf16le",
			input: utf16le(t, "There is no distribution with the supplied name.\r\n"),
			want:  "There is no distribution with the supplied name.\n",
		},
		{
			name:  "utf16le with bom",
			input: "\xff\xfe" + utf16le(t, "Arch (Default)\r\n"),
			want:  "Arch (Default)\n",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
		{
			name:  "odd length utf8",
			input: "abc",
			want:  "abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DecodeOutput(tt.input))
		})
	}
}

func TestQuote(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"/root/.condahome/bin/conda": "/root/.condahome/bin/conda",
		"python=3.11":                "python=3.11",
		"":                           "''",
		"/mnt/c/My Downloads/x.sh":   "'/mnt/c/My Downloads/x.sh'",
		"it's":                       `'it'\''s'`,
		"$(reboot)":                  "'$(reboot)'",
	}
	for in, want := range tests {
		assert.Equal(t, want, Quote(in), "input %q", in)
	}
}

func TestDistro_ScriptAndExec(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult(Command, []string{"-d", "Arch", "-u", "fenris", "--", "bash", "-lc", "echo hi"},
		ports.CommandResult{Stdout: "hi\n"})
	runner.AddResult(Command, []string{"-d", "Arch", "-u", "root", "--", "id", "-u", "fenris"},
		ports.CommandResult{Stdout: "1000\n"})

	d := NewDistro(runner, "Arch", "fenris", "bash")
	assert.Equal(t, "Arch", d.Name())
	assert.Equal(t, "fenris", d.User())

	result, err := d.Script(context.Background(), "echo hi")
	require.NoError(t, err)
	assert.Equal(t, "hi\n", result.Stdout)

	result, err = d.ExecAsRoot(context.Background(), "id", "-u", "fenris")
	require.NoError(t, err)
	assert.Equal(t, "1000\n", result.Stdout)
}

func TestDistro_Test(t *testing.T) {
	t.Parallel()

	args := []string{"-d", "Arch", "-u", "root", "--", "test", "-e", "/root/datastore.bin"}

	tests := []struct {
		name    string
		setup   func(*mocks.CommandRunner)
		want    sequence.State
		wantErr bool
	}{
		{
			name:  "exists",
			setup: func(r *mocks.CommandRunner) { r.AddResult(Command, args, ports.CommandResult{}) },
			want:  sequence.StatePresent,
		},
		{
			name:  "missing",
			setup: func(r *mocks.CommandRunner) { r.AddResult(Command, args, ports.CommandResult{ExitCode: 1}) },
			want:  sequence.StateAbsent,
		},
		{
			name: "distribution not registered",
			setup: func(r *mocks.CommandRunner) {
				r.AddResult(Command, args, ports.CommandResult{
					ExitCode: -1,
					Stdout:   utf16le(t, "There is no distribution with the supplied name.\r\n"),
				})
			},
			want:    sequence.StateUnknown,
			wantErr: true,
		},
		{
			name: "wsl not installed",
			setup: func(r *mocks.CommandRunner) {
				r.AddError(Command, args, &exec.Error{Name: "wsl", Err: exec.ErrNotFound})
			},
			want:    sequence.StateUnknown,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			runner := mocks.NewCommandRunner()
			tt.setup(runner)

			state, err := NewDistro(runner, "Arch", "root", "bash").Test(context.Background(), "-e", "/root/datastore.bin")
			assert.Equal(t, tt.want, state)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRunWSL_DecodesErrors(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult(Command, []string{"--set-default-version", "2"}, ports.CommandResult{
		ExitCode: 1,
		Stdout:   utf16le(t, "Please enable the Virtual Machine Platform Windows feature.\r\n"),
	})

	_, err := RunWSL(context.Background(), runner, "--set-default-version", "2")
	require.Error(t, err)
	assert.Equal(t, "wsl exited with code 1: Please enable the Virtual Machine Platform Windows feature.", err.Error())
}

func TestIsMissing(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddError(Command, []string{"--status"}, &exec.Error{Name: "wsl", Err: exec.ErrNotFound})

	_, err := RunWSL(context.Background(), runner, "--status")
	assert.True(t, IsMissing(err))
	assert.False(t, IsMissing(nil))
}
