package syscalls

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// longest buffer preview in a trace line
const traceStrsize = 32

func hex(a interface{}) string {
	tmp := fmt.Sprintf("0x%x", a)
	if strings.HasPrefix(tmp, "0x-") {
		tmp = "-0x" + tmp[3:]
	}
	return tmp
}

func repr(p []byte) string {
	if len(p) > traceStrsize {
		return strconv.Quote(string(p[:traceStrsize])) + "..."
	}
	return strconv.Quote(string(p))
}

func traceArg(args ...interface{}) string {
	switch arg := args[0].(type) {
	case Buf:
		if len(args) > 1 {
			if length, ok := args[1].(Len); ok && length > 0 {
				n := uint64(length)
				if n > traceStrsize+1 {
					n = traceStrsize + 1
				}
				mem := make([]byte, n)
				if arg.Read(mem) == nil {
					return repr(mem)
				}
			}
		}
		return hex(arg.Addr)
	case Len:
		return fmt.Sprintf("%d", uint64(arg))
	case Fd:
		return fmt.Sprintf("%d", int32(arg))
	case string:
		return repr([]byte(arg))
	case uint32:
		return hex(arg)
	default:
		return fmt.Sprintf("%v", arg)
	}
}

// trace renders a service call as name(args).
func trace(name string, in []reflect.Value) string {
	args := make([]interface{}, len(in))
	for i, val := range in {
		args[i] = val.Interface()
	}
	out := make([]string, len(args))
	for i := range args {
		out[i] = traceArg(args[i:]...)
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(out, ", "))
}

func traceRet(e Env, err error) string {
	if err != nil {
		return " = " + err.Error()
	}
	return " = " + hex(int64(int32(e.Reg(regA0))))
}
