//go:build linux

package files

import (
	"os"

	"github.com/brickingsoft/uring"
	"golang.org/x/sys/unix"
)

// Dir is an open directory that relative names are resolved against. The zero
// Dir resolves against the working directory.
type Dir struct {
	handle *uring.Handle
	name   string
}

// Cwd is the working directory.
var Cwd = &Dir{name: "."}

func OpenDir(co *uring.Co, name string) (*Dir, error) {
	return Cwd.OpenDir(co, name)
}

func (d *Dir) fd() int {
	if d == nil || d.handle == nil {
		return unix.AT_FDCWD
	}
	return d.handle.Fd()
}

func (d *Dir) Name() string {
	return d.name
}

// OpenDir opens the subdirectory name.
func (d *Dir) OpenDir(co *uring.Co, name string) (*Dir, error) {
	f, err := openat(co, d.fd(), name, unix.O_RDONLY|unix.O_DIRECTORY, 0)
	if err != nil {
		return nil, err
	}
	return &Dir{handle: f.handle, name: name}, nil
}

// Open opens name inside the directory.
func (d *Dir) Open(co *uring.Co, name string, flag int, perm uint32) (*File, error) {
	return openat(co, d.fd(), name, flag, perm)
}

func (d *Dir) Mkdir(co *uring.Co, name string, perm uint32) error {
	loop := co.Loop()
	res, err := co.Await(loop.Mkdirat(d.fd(), name, perm, 0))
	if err = result("mkdirat", res, err); err != nil {
		return &os.PathError{Op: "mkdir", Path: name, Err: err}
	}
	return nil
}

// Remove unlinks the file name.
func (d *Dir) Remove(co *uring.Co, name string) error {
	return d.unlink(co, name, 0)
}

// RemoveDir removes the empty directory name.
func (d *Dir) RemoveDir(co *uring.Co, name string) error {
	return d.unlink(co, name, unix.AT_REMOVEDIR)
}

func (d *Dir) unlink(co *uring.Co, name string, unlinkFlags int) error {
	loop := co.Loop()
	res, err := co.Await(loop.Unlinkat(d.fd(), name, unlinkFlags, 0))
	if err = result("unlinkat", res, err); err != nil {
		return &os.PathError{Op: "remove", Path: name, Err: err}
	}
	return nil
}

// Rename moves oldName in d to newName in dst.
func (d *Dir) Rename(co *uring.Co, oldName string, dst *Dir, newName string) error {
	loop := co.Loop()
	res, err := co.Await(loop.Renameat(d.fd(), oldName, dst.fd(), newName, 0, 0))
	if err = result("renameat", res, err); err != nil {
		return &os.LinkError{Op: "rename", Old: oldName, New: newName, Err: err}
	}
	return nil
}

// Link creates newName in dst as a hard link to oldName in d.
func (d *Dir) Link(co *uring.Co, oldName string, dst *Dir, newName string) error {
	loop := co.Loop()
	res, err := co.Await(loop.Linkat(d.fd(), oldName, dst.fd(), newName, 0, 0))
	if err = result("linkat", res, err); err != nil {
		return &os.LinkError{Op: "link", Old: oldName, New: newName, Err: err}
	}
	return nil
}

// Symlink creates name in d pointing at target.
func (d *Dir) Symlink(co *uring.Co, target string, name string) error {
	loop := co.Loop()
	res, err := co.Await(loop.Symlinkat(target, d.fd(), name, 0))
	if err = result("symlinkat", res, err); err != nil {
		return &os.LinkError{Op: "symlink", Old: target, New: name, Err: err}
	}
	return nil
}

// Stat describes name without following a final symbolic link.
func (d *Dir) Stat(co *uring.Co, name string) (*unix.Statx_t, error) {
	loop := co.Loop()
	stat := &unix.Statx_t{}
	res, err := co.Await(loop.Statx(d.fd(), name, unix.AT_SYMLINK_NOFOLLOW, unix.STATX_BASIC_STATS, stat, 0))
	if err = result("statx", res, err); err != nil {
		return nil, &os.PathError{Op: "stat", Path: name, Err: err}
	}
	return stat, nil
}

// Close closes the directory. Closing Cwd does nothing.
func (d *Dir) Close(co *uring.Co) error {
	if d.handle == nil {
		return nil
	}
	if err := d.handle.Close(co); err != nil {
		return &os.PathError{Op: "close", Path: d.name, Err: err}
	}
	return nil
}

func (d *Dir) Release() {
	if d.handle != nil {
		d.handle.Release()
	}
}
