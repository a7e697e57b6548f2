//go:build linux

package files_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/uring"
	"github.com/brickingsoft/uring/pkg/capability"
	"github.com/brickingsoft/uring/pkg/files"
	"golang.org/x/sys/unix"
)

func newLoop(t *testing.T, ops ...capability.Op) *uring.EventLoop {
	t.Helper()
	loop, err := uring.New(uring.WithEntries(16))
	if err != nil {
		t.Skip("io_uring unavailable:", err)
	}
	for _, op := range append(ops, capability.OpOpenat, capability.OpClose) {
		if !loop.Capabilities().Supports(op) {
			_ = loop.Close()
			t.Skip(op, "unsupported")
		}
	}
	return loop
}

func TestFileReadAt(t *testing.T) {
	loop := newLoop(t, capability.OpRead)
	defer loop.Close()

	content := bytes.Repeat([]byte("0123456789"), 10)
	name := filepath.Join(t.TempDir(), "data")
	if err := os.WriteFile(name, content, 0600); err != nil {
		t.Fatal(err)
	}

	_, err := uring.Spawn(loop, func(co *uring.Co) error {
		f, err := files.Open(co, name, unix.O_RDONLY, 0)
		if err != nil {
			return err
		}
		defer f.Release()

		buf := make([]byte, 64)
		n, err := f.ReadAt(co, buf, 0)
		if err != nil {
			return err
		}
		if n != 64 || !bytes.Equal(buf[:n], content[:64]) {
			t.Error("first read", n)
		}
		if n, err = f.ReadAt(co, buf, 64); err != nil || n != 36 {
			t.Error("short read", n, err)
		}
		if _, err = f.ReadAt(co, buf, 100); !errors.Is(err, io.EOF) {
			t.Error("read past the end", err)
		}
		return f.Close(co)
	}).BlockOn()
	if err != nil {
		t.Fatal(err)
	}
}

func TestFileOpenMissing(t *testing.T) {
	loop := newLoop(t)
	defer loop.Close()

	_, err := uring.Spawn(loop, func(co *uring.Co) error {
		_, err := files.Open(co, filepath.Join(t.TempDir(), "missing"), unix.O_RDONLY, 0)
		return err
	}).BlockOn()
	var pathErr *os.PathError
	if !errors.As(err, &pathErr) || !errors.Is(err, unix.ENOENT) {
		t.Fatal("expected ENOENT path error, got", err)
	}
}

func TestFileWriteRead(t *testing.T) {
	loop := newLoop(t, capability.OpRead, capability.OpWrite, capability.OpFsync, capability.OpStatx)
	defer loop.Close()

	name := filepath.Join(t.TempDir(), "out")
	_, err := uring.Spawn(loop, func(co *uring.Co) error {
		f, err := files.Open(co, name, unix.O_RDWR|unix.O_CREAT|unix.O_TRUNC, 0600)
		if err != nil {
			return err
		}
		defer f.Release()

		if _, err = f.WriteAt(co, []byte("hello, "), 0); err != nil {
			return err
		}
		if _, err = f.WriteAt(co, []byte("uring"), 7); err != nil {
			return err
		}
		if err = f.Sync(co); err != nil {
			return err
		}
		stat, err := f.Stat(co)
		if err != nil {
			return err
		}
		if stat.Size != 12 {
			t.Error("size", stat.Size)
		}
		buf := make([]byte, 32)
		n, err := f.ReadAt(co, buf, 0)
		if err != nil {
			return err
		}
		if string(buf[:n]) != "hello, uring" {
			t.Error("read back", string(buf[:n]))
		}
		return f.Close(co)
	}).BlockOn()
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(name)
	if err != nil || string(data) != "hello, uring" {
		t.Fatal(string(data), err)
	}
}

func TestFileVectored(t *testing.T) {
	loop := newLoop(t, capability.OpReadv, capability.OpWritev)
	defer loop.Close()

	name := filepath.Join(t.TempDir(), "vec")
	_, err := uring.Spawn(loop, func(co *uring.Co) error {
		f, err := files.Open(co, name, unix.O_RDWR|unix.O_CREAT, 0600)
		if err != nil {
			return err
		}
		defer f.Release()

		n, err := f.WritevAt(co, [][]byte{[]byte("abc"), []byte("defg")}, 0)
		if err != nil || n != 7 {
			t.Error("writev", n, err)
		}
		a, b := make([]byte, 2), make([]byte, 5)
		if n, err = f.ReadvAt(co, [][]byte{a, b}, 0); err != nil || n != 7 {
			t.Error("readv", n, err)
		}
		if string(a)+string(b) != "abcdefg" {
			t.Error("readv content", string(a), string(b))
		}
		return f.Close(co)
	}).BlockOn()
	if err != nil {
		t.Fatal(err)
	}
}

func TestFileFixedBuffers(t *testing.T) {
	buffer := make([]byte, 4096)
	loop, err := uring.New(uring.WithEntries(8), uring.WithBuffers(buffer))
	if err != nil {
		t.Skip("io_uring or buffer registration unavailable:", err)
	}
	defer loop.Close()
	caps := loop.Capabilities()
	if !caps.Supports(capability.OpWriteFixed) || !caps.Supports(capability.OpReadFixed) || !caps.Supports(capability.OpOpenat) {
		t.Skip("fixed buffer operations unsupported")
	}

	name := filepath.Join(t.TempDir(), "fixed")
	_, err = uring.Spawn(loop, func(co *uring.Co) error {
		f, err := files.Open(co, name, unix.O_RDWR|unix.O_CREAT, 0600)
		if err != nil {
			return err
		}
		defer f.Release()

		copy(buffer, "registered")
		if _, err = f.WriteFixed(co, buffer[:10], 0, 0); err != nil {
			return err
		}
		clear(buffer)
		n, err := f.ReadFixed(co, buffer[:10], 0, 0)
		if err != nil {
			return err
		}
		if string(buffer[:n]) != "registered" {
			t.Error("fixed read", string(buffer[:n]))
		}
		return f.Close(co)
	}).BlockOn()
	if err != nil {
		t.Fatal(err)
	}
}

func TestPipeTeeSplice(t *testing.T) {
	loop := newLoop(t, capability.OpTee, capability.OpSplice, capability.OpRead, capability.OpWrite)
	defer loop.Close()

	_, err := uring.Spawn(loop, func(co *uring.Co) error {
		r1, w1, err := files.Pipe(co.Loop())
		if err != nil {
			return err
		}
		defer r1.Release()
		defer w1.Release()
		r2, w2, err := files.Pipe(co.Loop())
		if err != nil {
			return err
		}
		defer r2.Release()
		defer w2.Release()

		if _, err = w1.Write(co, []byte("hello")); err != nil {
			return err
		}
		if n, teeErr := files.Tee(co, r1, w2, 5); teeErr != nil || n != 5 {
			t.Error("tee", n, teeErr)
		}
		buf := make([]byte, 5)
		if n, readErr := r2.Read(co, buf); readErr != nil || string(buf[:n]) != "hello" {
			t.Error("tee copy", string(buf[:n]), readErr)
		}
		if n, spliceErr := files.Splice(co, r1, -1, w2, -1, 5); spliceErr != nil || n != 5 {
			t.Error("splice", n, spliceErr)
		}
		if n, readErr := r2.Read(co, buf); readErr != nil || string(buf[:n]) != "hello" {
			t.Error("splice copy", string(buf[:n]), readErr)
		}
		return nil
	}).BlockOn()
	if err != nil {
		t.Fatal(err)
	}
}
