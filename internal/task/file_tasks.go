package task

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"spool/internal/convert"
	"spool/internal/fileutil"
)

// source holds a task's source path and its shared precondition check.
type source struct {
	Src string
}

func (s source) checkSource() error {
	info, err := os.Stat(s.Src)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, s.Src)
		}
		return fmt.Errorf("stat %s: %w", s.Src, err)
	}
	if !info.Mode().IsRegular() && !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrInvalidTarget, s.Src)
	}
	return nil
}

// transfer extends source with a destination that must not exist yet.
type transfer struct {
	source
	Dst string
}

func (t transfer) checkTransfer() error {
	if err := t.checkSource(); err != nil {
		return err
	}
	if fileutil.PathExists(t.Dst) {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, t.Dst)
	}
	return nil
}

func cleanPath(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

// FileCheck validates that a path exists and is a file or directory. It is
// the executable form of the shared source precondition: running it probes
// the filesystem without side effects.
type FileCheck struct {
	source
}

// NewFileCheck builds a FileCheck, validating the source when requested.
func NewFileCheck(src string, validate bool) (*FileCheck, error) {
	t := &FileCheck{source{Src: cleanPath(src)}}
	if validate {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (f *FileCheck) Kind() Kind      { return KindFile }
func (f *FileCheck) Validate() error { return f.checkSource() }

func (f *FileCheck) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.Validate()
}

func (f *FileCheck) Describe() string { return fmt.Sprintf("CHECK %s", f.Src) }

// Delete removes the source path.
type Delete struct {
	source
}

// NewDelete builds a Delete task, validating the source when requested.
func NewDelete(src string, validate bool) (*Delete, error) {
	t := &Delete{source{Src: cleanPath(src)}}
	if validate {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (d *Delete) Kind() Kind      { return KindDelete }
func (d *Delete) Validate() error { return d.checkSource() }

func (d *Delete) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.Remove(d.Src)
}

func (d *Delete) Describe() string { return fmt.Sprintf("DEL %s", d.Src) }

// Copy duplicates the source at the destination. It refuses to overwrite:
// validation fails with ErrAlreadyExists when the destination is occupied,
// and Run re-validates first because another actor may have created the
// destination between enqueue and execution.
type Copy struct {
	transfer
}

// NewCopy builds a Copy task, validating preconditions when requested.
func NewCopy(src, dst string, validate bool) (*Copy, error) {
	t := &Copy{transfer{source{Src: cleanPath(src)}, cleanPath(dst)}}
	if validate {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (c *Copy) Kind() Kind      { return KindCopy }
func (c *Copy) Validate() error { return c.checkTransfer() }

func (c *Copy) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	return fileutil.CopyPath(c.Src, c.Dst)
}

func (c *Copy) Describe() string { return fmt.Sprintf("COPY %s -> %s", c.Src, c.Dst) }

// Move relocates the source to the destination with the same
// no-overwrite precondition as Copy.
type Move struct {
	transfer
}

// NewMove builds a Move task, validating preconditions when requested.
func NewMove(src, dst string, validate bool) (*Move, error) {
	t := &Move{transfer{source{Src: cleanPath(src)}, cleanPath(dst)}}
	if validate {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (m *Move) Kind() Kind      { return KindMove }
func (m *Move) Validate() error { return m.checkTransfer() }

func (m *Move) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return err
	}
	return fileutil.MovePath(m.Src, m.Dst)
}

func (m *Move) Describe() string { return fmt.Sprintf("MOVE %s -> %s", m.Src, m.Dst) }

// Convert produces the destination from the source through a converter
// capability. The transform itself is opaque to the task.
type Convert struct {
	transfer
	Converter convert.Converter
}

// NewConvert builds a Convert task, validating preconditions when requested.
func NewConvert(src, dst string, conv convert.Converter, validate bool) (*Convert, error) {
	if conv == nil {
		return nil, fmt.Errorf("convert task: converter is required")
	}
	t := &Convert{transfer{source{Src: cleanPath(src)}, cleanPath(dst)}, conv}
	if validate {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (c *Convert) Kind() Kind      { return KindConvert }
func (c *Convert) Validate() error { return c.checkTransfer() }

func (c *Convert) Run(ctx context.Context) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return c.Converter.Run(ctx, c.Src, c.Dst)
}

func (c *Convert) Describe() string {
	return fmt.Sprintf("CONV [%s] %s -> %s", c.Converter.Name(), c.Src, c.Dst)
}
