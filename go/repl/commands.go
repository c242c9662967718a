package repl

var cmdRc = `
func _is_public(name)
    return _builtins[name] != true and name:sub(1, 1) != '_'
end

_builtins = {}
for name, _ in pairs(_G) do
    _builtins[name] = true
end

func help()
    print [[
s [n]          step n instructions (default 1)
c [max]        continue until a breakpoint, exit or max steps
rw [n]         step back n instructions
reset          reload the program and clear history
b addr|sym     set a breakpoint, tb for a temporary one
del addr       remove a breakpoint
bl             list breakpoints
r              show registers
x [addr] [n]   show n memory words
dis [addr] [n] disassemble n instructions
dump fmt first last [path]
on code|read|write|fault fn [start] [stop]
off            remove the last hook
info           machine state
]]
end

func dir()
    local ret = {}
    for name, _ in pairs(_G) do
        if _is_public(name) then
            table.insert(ret, name)
        end
    end
    table.sort(ret)
    return ret
end

local _hook_types = {
    code = cpu.HOOK_CODE,
    intr = cpu.HOOK_INTR,
    reg = cpu.HOOK_REG,
    read = cpu.HOOK_MEM_READ,
    write = cpu.HOOK_MEM_WRITE,
    fetch = cpu.HOOK_MEM_FETCH,
    fault = cpu.HOOK_MEM_ERR,
}

func on(name, fn, start, stop)
    local type = _hook_types[name]
    if type == nil then
        print 'unknown hook type %s' % name
        return
    end
    if start == nil then
        hh = m.hook_add(type, fn)
    else
        if stop == nil then stop = start end
        hh = m.hook_add(type, fn, start, stop)
    end
    return hh
end

func off()
    if hh then
        m.hook_del(hh)
        hh = nil
    end
end

func s(n) m.step(n) end
func c(max) m.cont(max) end
func rw(n) return m.back(n) end
func reset() m.reset() end

func b(desc) return m.brk(tostring(desc)) end
func tb(desc) return m.brk(tostring(desc), true) end
func del(addr) return m.unbrk(addr) end
func bl()
    for _, desc in ipairs(m.breaks()) do
        print desc
    end
end

func r() m.regs() end
regs = r
func x(addr, n) m.view(addr, n) end
func dis(addr, n) m.dis(addr, n) end
func dump(format, first, last, path) m.dump(format, first, last, path) end
func read(addr, n) return m.read(addr, n) end
func write(addr, val) m.write(addr, val) end
func info() m.state() end

func runto(name)
    local target = name
    on('code', func(addr)
        if m.sym(addr) == target then
            print '[-] stopping at %s' % target
            ms:Pause()
            off()
        end
    end)
    c()
end
`
