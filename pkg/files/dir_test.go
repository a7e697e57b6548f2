//go:build linux

package files_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/uring"
	"github.com/brickingsoft/uring/pkg/capability"
	"github.com/brickingsoft/uring/pkg/files"
	"golang.org/x/sys/unix"
)

func TestDir(t *testing.T) {
	loop := newLoop(t,
		capability.OpMkdirat, capability.OpRenameat, capability.OpUnlinkat,
		capability.OpLinkat, capability.OpSymlinkat, capability.OpStatx, capability.OpWrite,
	)
	defer loop.Close()

	root := t.TempDir()
	_, err := uring.Spawn(loop, func(co *uring.Co) error {
		dir, err := files.OpenDir(co, root)
		if err != nil {
			return err
		}
		defer dir.Release()

		if err = dir.Mkdir(co, "sub", 0700); err != nil {
			return err
		}
		sub, err := dir.OpenDir(co, "sub")
		if err != nil {
			return err
		}
		defer sub.Release()

		f, err := sub.Open(co, "a", unix.O_WRONLY|unix.O_CREAT, 0600)
		if err != nil {
			return err
		}
		if _, err = f.Write(co, []byte("abc")); err != nil {
			return err
		}
		if err = f.Close(co); err != nil {
			return err
		}
		if err = sub.Rename(co, "a", dir, "b"); err != nil {
			return err
		}
		if err = dir.Link(co, "b", sub, "c"); err != nil {
			return err
		}
		if err = dir.Symlink(co, "b", "d"); err != nil {
			return err
		}
		stat, err := dir.Stat(co, "d")
		if err != nil {
			return err
		}
		if stat.Mode&unix.S_IFMT != unix.S_IFLNK {
			t.Error("d is not a symlink", stat.Mode)
		}
		if stat, err = sub.Stat(co, "c"); err != nil || stat.Size != 3 || stat.Nlink != 2 {
			t.Error("hard link", stat, err)
		}
		if err = dir.RemoveDir(co, "sub"); !errors.Is(err, unix.ENOTEMPTY) {
			t.Error("removed a non-empty directory", err)
		}
		if err = sub.Remove(co, "c"); err != nil {
			return err
		}
		if err = sub.Close(co); err != nil {
			return err
		}
		if err = dir.RemoveDir(co, "sub"); err != nil {
			return err
		}
		return dir.Close(co)
	}).BlockOn()
	if err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if len(names) != 2 || names[0] != "b" || names[1] != "d" {
		t.Fatal("unexpected tree", names)
	}
	if target, _ := os.Readlink(filepath.Join(root, "d")); target != "b" {
		t.Fatal("symlink target", target)
	}
}
