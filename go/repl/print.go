package repl

import (
	"fmt"
	"strings"

	"github.com/lunixbochs/luaish"
)

// formatInt shows small numbers in decimal, addresses in hex and the range
// between as both.
func formatInt(n uint64) string {
	switch {
	case n < 10:
		return fmt.Sprintf("%d", n)
	case n > 0x10000:
		return fmt.Sprintf("%#x", n)
	default:
		return fmt.Sprintf("%#x(%d)", n, n)
	}
}

func (L *Lua) pretty(v lua.LValue, implicit, outer bool, seen map[*lua.LTable]bool) string {
	switch s := v.(type) {
	case *lua.LTable:
		if seen[s] {
			return "{<recursion>}"
		}
		seen[s] = true
		defer delete(seen, s)

		var items []string
		idx := 1
		s.ForEach(func(k, v lua.LValue) {
			val := L.pretty(v, implicit, false, seen)
			if n, ok := k.(lua.LInt); ok && int(n) == idx {
				idx++
				items = append(items, val)
			} else {
				items = append(items, L.pretty(k, implicit, false, seen)+" = "+val)
			}
		})
		sep := ", "
		if outer {
			sep = ",\n "
		}
		return "{" + strings.Join(items, sep) + "}"
	case lua.LFloat:
		return fmt.Sprintf("%f", float64(s))
	case lua.LInt:
		return formatInt(uint64(s))
	case lua.LString:
		if implicit {
			return fmt.Sprintf("%q", string(s))
		}
		return string(s)
	}
	return v.String()
}

func (L *Lua) PrettyDump(lv []lua.LValue, implicit bool) []string {
	out := make([]string, len(lv))
	seen := make(map[*lua.LTable]bool)
	for i, v := range lv {
		out[i] = L.pretty(v, implicit, true, seen)
	}
	return out
}

func (L *Lua) PrettyPrint(lv []lua.LValue, implicit bool) {
	L.Printf("%s\n", strings.Join(L.PrettyDump(lv, implicit), " "))
}
