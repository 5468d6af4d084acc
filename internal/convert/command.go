package convert

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"spool/internal/fileutil"
)

func init() {
	Register("copy", func(options map[string]string) (Converter, error) {
		return CopyConverter{}, nil
	})
	Register("command", NewCommandConverter)
}

// CopyConverter is a passthrough transform that copies the source verbatim.
// Useful for diagnostics and as the smallest real converter in tests.
type CopyConverter struct{}

func (CopyConverter) Name() string { return "copy" }

func (CopyConverter) Options() map[string]string { return nil }

func (CopyConverter) Run(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fileutil.CopyFileVerified(src, dst); err != nil {
		return fmt.Errorf("%w: %s", ErrConversion, err)
	}
	return nil
}

// CommandConverter shells out to an external binary. The argument template
// substitutes {src} and {dst} per invocation, so one registered command can
// serve any source/destination pair.
type CommandConverter struct {
	bin  string
	args []string
}

// NewCommandConverter builds a command converter from persisted options.
// Required options: "bin" (executable) and "args" (whitespace-separated
// argument template containing {src} and {dst} placeholders).
func NewCommandConverter(options map[string]string) (Converter, error) {
	bin := strings.TrimSpace(options["bin"])
	if bin == "" {
		return nil, fmt.Errorf("command converter: option %q is required", "bin")
	}
	return &CommandConverter{bin: bin, args: strings.Fields(options["args"])}, nil
}

func (c *CommandConverter) Name() string { return "command" }

func (c *CommandConverter) Options() map[string]string {
	return map[string]string{"bin": c.bin, "args": strings.Join(c.args, " ")}
}

func (c *CommandConverter) Run(ctx context.Context, src, dst string) error {
	if _, err := exec.LookPath(c.bin); err != nil {
		return fmt.Errorf("%w: %s not found in PATH: %s", ErrConversion, c.bin, err)
	}

	args := make([]string, len(c.args))
	for i, arg := range c.args {
		arg = strings.ReplaceAll(arg, "{src}", src)
		arg = strings.ReplaceAll(arg, "{dst}", dst)
		args[i] = arg
	}

	cmd := exec.CommandContext(ctx, c.bin, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s: %s: %s", ErrConversion, c.bin, err, strings.TrimSpace(string(output)))
	}
	return nil
}
