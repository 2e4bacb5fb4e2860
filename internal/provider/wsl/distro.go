// Package wsl provides the Windows Subsystem for Linux steps and the
// runner used by every step that works inside the distribution.
package wsl

import (
	"context"
	"strings"

	"github.com/felixgeelhaar/wslboot/internal/domain/sequence"
	"github.com/felixgeelhaar/wslboot/internal/ports"
	"github.com/felixgeelhaar/wslboot/internal/provider/commandutil"
	"golang.org/x/text/encoding/unicode"
)

// Command is the WSL launcher on the Windows host.
const Command = "wsl"

// Distro runs commands inside one WSL distribution as a fixed user.
type Distro struct {
	runner ports.CommandRunner
	name   string
	user   string
	shell  string
}

// NewDistro creates a Distro. Scripts run as "<shell> -lc <script>" so the
// user's login environment (conda init, PATH edits) applies.
func NewDistro(runner ports.CommandRunner, name, user, shell string) *Distro {
	return &Distro{runner: runner, name: name, user: user, shell: shell}
}

// Name returns the distribution name.
func (d *Distro) Name() string {
	return d.name
}

// User returns the user commands run as.
func (d *Distro) User() string {
	return d.user
}

// Shell returns the login shell scripts run under.
func (d *Distro) Shell() string {
	return d.shell
}

// Exec runs argv inside the distribution as the configured user.
func (d *Distro) Exec(ctx context.Context, args ...string) (ports.CommandResult, error) {
	return d.exec(ctx, d.user, args...)
}

// ExecAsRoot runs argv inside the distribution as root.
func (d *Distro) ExecAsRoot(ctx context.Context, args ...string) (ports.CommandResult, error) {
	return d.exec(ctx, "root", args...)
}

// Script runs a shell script inside the distribution as the configured
// user, through a login shell.
func (d *Distro) Script(ctx context.Context, script string) (ports.CommandResult, error) {
	return d.Exec(ctx, d.shell, "-lc", script)
}

func (d *Distro) exec(ctx context.Context, user string, args ...string) (ports.CommandResult, error) {
	wslArgs := []string{"-d", d.name}
	if user != "" {
		wslArgs = append(wslArgs, "-u", user)
	}
	wslArgs = append(wslArgs, "--")
	wslArgs = append(wslArgs, args...)
	return RunWSL(ctx, d.runner, wslArgs...)
}

// Test runs "test <flag> <path>" inside the distribution. Exit 0 is
// StatePresent and exit 1 StateAbsent; anything else cannot be judged.
func (d *Distro) Test(ctx context.Context, flag, path string) (sequence.State, error) {
	_, err := d.Exec(ctx, "test", flag, path)
	if err == nil {
		return sequence.StatePresent, nil
	}
	if commandutil.ExitCode(err) == 1 {
		return sequence.StateAbsent, nil
	}
	return sequence.StateUnknown, err
}

// RunWSL runs wsl.exe with args, decoding its UTF-16 output.
func RunWSL(ctx context.Context, runner ports.CommandRunner, args ...string) (ports.CommandResult, error) {
	return commandutil.RunDecoded(ctx, runner, DecodeOutput, Command, args...)
}

// DecodeOutput converts wsl.exe output to UTF-8. wsl.exe writes its own
// messages as UTF-16LE, while commands inside the distribution print
// UTF-8; text with interleaved NUL bytes is taken as UTF-16LE.
func DecodeOutput(s string) string {
	if !looksUTF16LE(s) {
		return s
	}
	dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	out, err := dec.String(s)
	if err != nil {
		return s
	}
	return strings.ReplaceAll(out, "\r\n", "\n")
}

func looksUTF16LE(s string) bool {
	if strings.HasPrefix(s, "\xff\xfe") {
		return true
	}
	if len(s) < 2 || len(s)%2 != 0 {
		return false
	}
	zeros := 0
	for i := 1; i < len(s); i += 2 {
		if s[i] == 0 {
			zeros++
		}
	}
	return zeros*2 >= len(s)/2
}

// Quote single-quotes s for a POSIX shell.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, needsQuote) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("/._-+=:,@%", r)
}

// IsMissing reports whether err means wsl.exe itself is not installed.
func IsMissing(err error) bool {
	return commandutil.IsCommandNotFound(err)
}
