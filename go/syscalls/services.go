package syscalls

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/rvcorn/rvcorn/go/cpu/riscv"
	"github.com/rvcorn/rvcorn/go/models"
)

// largest single Read or Write transfer
const maxIO = 1 << 24

// open flags
const (
	openRead   = 0
	openWrite  = 1
	openAppend = 9
)

func (k *Kernel) ret(val int64) error {
	return k.env.SetReg(regA0, uint64(val))
}

func (k *Kernel) fail(msg string) error {
	return riscv.Exception(riscv.CauseEcall, k.env.Reg(regA7), msg)
}

func (k *Kernel) print(s string) error {
	_, err := io.WriteString(k.stdout, s)
	return errors.Wrap(err, "console write")
}

// readLine returns the next line of console input without its newline.
func (k *Kernel) readLine() (string, error) {
	line, err := k.stdin.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// formatFloat prints the way console programs expect: "1.0", "NaN", "Infinity".
func formatFloat(v float64, bits int) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(v, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

func (k *Kernel) rand(stream uint32) *rand.Rand {
	r, ok := k.rands[stream]
	if !ok {
		r = rand.New(rand.NewSource(k.now().UnixNano()))
		k.rands[stream] = r
	}
	return r
}

func (k *Kernel) PrintInt(n int32) error {
	return k.print(strconv.FormatInt(int64(n), 10))
}

func (k *Kernel) PrintFloat() error {
	return k.print(formatFloat(float64(k.env.Float32(regFA0)), 32))
}

func (k *Kernel) PrintDouble() error {
	return k.print(formatFloat(k.env.Float64(regFA0), 64))
}

func (k *Kernel) PrintString(s string) error {
	return k.print(s)
}

func (k *Kernel) PrintChar(c int32) error {
	_, err := k.stdout.Write([]byte{byte(c)})
	return errors.Wrap(err, "console write")
}

func (k *Kernel) PrintIntHex(n uint32) error {
	return k.print(fmt.Sprintf("0x%08x", n))
}

func (k *Kernel) PrintIntBinary(n uint32) error {
	return k.print(fmt.Sprintf("%032b", n))
}

func (k *Kernel) PrintIntUnsigned(n uint32) error {
	return k.print(strconv.FormatUint(uint64(n), 10))
}

func (k *Kernel) ReadInt() error {
	line, err := k.readLine()
	if err != nil {
		return k.fail("ReadInt: " + err.Error())
	}
	n, err := strconv.ParseInt(strings.TrimSpace(line), 0, 32)
	if err != nil {
		return k.fail("ReadInt: invalid integer input")
	}
	return k.ret(n)
}

func (k *Kernel) ReadFloat() error {
	line, err := k.readLine()
	if err != nil {
		return k.fail("ReadFloat: " + err.Error())
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(line), 32)
	if err != nil {
		return k.fail("ReadFloat: invalid float input")
	}
	return k.env.SetFloat32(regFA0, float32(f))
}

func (k *Kernel) ReadDouble() error {
	line, err := k.readLine()
	if err != nil {
		return k.fail("ReadDouble: " + err.Error())
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
	if err != nil {
		return k.fail("ReadDouble: invalid double input")
	}
	return k.env.SetFloat64(regFA0, f)
}

// ReadString stores at most max-1 bytes of the next line, including its
// newline if it fits, followed by NUL.
func (k *Kernel) ReadString(buf Buf, max int32) error {
	if max < 1 {
		return nil
	}
	line, err := k.stdin.ReadString('\n')
	if err != nil && err != io.EOF {
		return k.fail("ReadString: " + err.Error())
	}
	if len(line) > int(max-1) {
		line = line[:max-1]
	}
	return buf.Write(append([]byte(line), 0))
}

func (k *Kernel) ReadChar() error {
	b, err := k.stdin.ReadByte()
	if err == io.EOF {
		return k.ret(-1)
	} else if err != nil {
		return k.fail("ReadChar: " + err.Error())
	}
	return k.ret(int64(b))
}

// Sbrk grows the heap by amount bytes, rounded up to a word, and returns the
// previous break.
func (k *Kernel) Sbrk(amount int32) error {
	if amount < 0 {
		return k.fail("Sbrk: negative amount")
	}
	size := (uint64(amount) + 3) &^ 3
	if k.brk+size > k.heapMax {
		return k.fail("Sbrk: request exceeds available heap storage")
	}
	old := k.brk
	k.brk += size
	return k.ret(int64(old))
}

// Brk moves the break to addr and returns the new break, or the current one
// when addr is outside the heap.
func (k *Kernel) Brk(addr uint32) error {
	a := uint64(addr)
	if a >= k.heapBase && a <= k.heapMax {
		k.brk = a
	}
	return k.ret(int64(k.brk))
}

func (k *Kernel) Exit() error {
	return models.ExitStatus(0)
}

func (k *Kernel) Exit2(code int32) error {
	return models.ExitStatus(code)
}

// GetCWD stores the working directory at buf and returns 0, or -1 when it
// does not fit in n bytes.
func (k *Kernel) GetCWD(buf Buf, n Len) error {
	dir, err := os.Getwd()
	if err != nil || uint64(len(dir)+1) > uint64(n) {
		return k.ret(-1)
	}
	if err := buf.Write(append([]byte(dir), 0)); err != nil {
		return err
	}
	return k.ret(0)
}

func (k *Kernel) Time() error {
	ms := uint64(k.now().UnixNano() / int64(time.Millisecond))
	if err := k.env.SetReg(regA0, uint64(int64(int32(ms)))); err != nil {
		return err
	}
	return k.env.SetReg(regA1, uint64(int64(int32(ms>>32))))
}

// Sleep blocks the calling hart for ms milliseconds or until the run is stopped.
func (k *Kernel) Sleep(ms int32) error {
	if ms <= 0 {
		return nil
	}
	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-k.env.Done():
	}
	return nil
}

func (k *Kernel) RandSeed(stream uint32, seed int32) error {
	k.rands[stream] = rand.New(rand.NewSource(int64(seed)))
	return nil
}

func (k *Kernel) RandInt(stream uint32) error {
	return k.ret(int64(int32(k.rand(stream).Uint32())))
}

func (k *Kernel) RandIntRange(stream uint32, upper int32) error {
	if upper <= 0 {
		return k.fail("RandIntRange: upper bound must be positive")
	}
	return k.ret(int64(k.rand(stream).Int31n(upper)))
}

func (k *Kernel) RandFloat(stream uint32) error {
	return k.env.SetFloat32(regFA0, k.rand(stream).Float32())
}

func (k *Kernel) Open(name string, flags int32) error {
	var mode int
	switch flags {
	case openRead:
		mode = os.O_RDONLY
	case openWrite:
		mode = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case openAppend:
		mode = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	default:
		return k.ret(-1)
	}
	f, err := os.OpenFile(name, mode, 0644)
	if err != nil {
		k.Log.WithError(err).Debug("Open")
		return k.ret(-1)
	}
	fd := k.nextFd
	k.nextFd++
	k.files[fd] = f
	return k.ret(int64(fd))
}

func (k *Kernel) Close(fd Fd) error {
	f, ok := k.files[fd]
	if !ok {
		return nil
	}
	delete(k.files, fd)
	if err := f.Close(); err != nil {
		k.Log.WithError(err).Debug("Close")
	}
	return nil
}

func (k *Kernel) LSeek(fd Fd, offset int32, whence int32) error {
	f, ok := k.files[fd]
	if !ok || whence < 0 || whence > 2 {
		return k.ret(-1)
	}
	pos, err := f.Seek(int64(offset), int(whence))
	if err != nil {
		return k.ret(-1)
	}
	return k.ret(pos)
}

func (k *Kernel) Read(fd Fd, buf Buf, n Len) error {
	var r io.Reader
	if fd == 0 {
		r = k.stdin
	} else if f, ok := k.files[fd]; ok {
		r = f
	} else {
		return k.ret(-1)
	}
	if n > maxIO {
		n = maxIO
	}
	p := make([]byte, n)
	count, err := r.Read(p)
	if err != nil && err != io.EOF {
		return k.ret(-1)
	}
	if err := buf.Write(p[:count]); err != nil {
		return err
	}
	return k.ret(int64(count))
}

func (k *Kernel) Write(fd Fd, buf Buf, n Len) error {
	var w io.Writer
	if fd == 1 || fd == 2 {
		w = k.stdout
	} else if f, ok := k.files[fd]; ok {
		w = f
	} else {
		return k.ret(-1)
	}
	if n > maxIO {
		n = maxIO
	}
	p := make([]byte, n)
	if err := buf.Read(p); err != nil {
		return err
	}
	count, err := w.Write(p)
	if err != nil {
		return k.ret(-1)
	}
	return k.ret(int64(count))
}
