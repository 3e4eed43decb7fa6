// Package script embeds a Lua VM for user automation: hooks on server
// lines and user input, with a small tern.* API for sending and printing.
package script

import (
	_ "embed"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	glua "github.com/yuin/gopher-lua"
)

//go:embed core.lua
var coreScript string

// Host bridges the Engine to the rest of the system. The abstraction
// keeps the Engine testable without a live connection or UI.
type Host interface {
	// Print pushes text to the user's screen.
	Print(text string)

	// Send queues a line for the server.
	Send(data string)
}

// Engine wraps gopher-lua and manages the VM lifecycle. It is a pure
// mechanism: it knows how to run Lua code and expose the API, not where
// scripts come from.
type Engine struct {
	L          *glua.LState
	regexCache *lru.Cache[string, *regexp.Regexp]

	// Cached table reference
	ternTable *glua.LTable

	host Host
}

// NewEngine creates an Engine with the given Host.
func NewEngine(host Host) *Engine {
	cache, _ := lru.New[string, *regexp.Regexp](100)
	return &Engine{
		regexCache: cache,
		host:       host,
	}
}

// Init initializes (or re-initializes) the Lua VM with fresh state,
// registers the tern API, and loads the embedded core runtime.
func (e *Engine) Init() error {
	if e.L != nil {
		e.L.Close()
	}

	e.L = glua.NewState()

	cache, _ := lru.New[string, *regexp.Regexp](100)
	e.regexCache = cache

	e.registerAPIs()

	return e.DoString("core.lua", coreScript)
}

// Close cleans up the Lua state.
func (e *Engine) Close() {
	if e.L != nil {
		e.L.Close()
		e.L = nil
	}
}

// DoString executes a raw string of Lua code.
// The name parameter is used for stack traces.
func (e *Engine) DoString(name, code string) error {
	fn, err := e.L.Load(strings.NewReader(code), name)
	if err != nil {
		return err
	}
	e.L.Push(fn)
	return e.L.PCall(0, 0, nil)
}

// DoFile executes a Lua file from the filesystem.
// It temporarily adjusts package.path to allow local requires.
func (e *Engine) DoFile(path string) error {
	path = expandTilde(path)

	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(absPath)

	pkg := e.L.GetGlobal("package").(*glua.LTable)
	oldPath := e.L.GetField(pkg, "path").String()
	e.L.SetField(pkg, "path", glua.LString(dir+"/?.lua;"+oldPath))

	err = e.L.DoFile(absPath)

	e.L.SetField(pkg, "path", glua.LString(oldPath))

	return err
}

// OnLine handles a line of server text. Returns the (possibly modified)
// line and whether it should still be shown.
func (e *Engine) OnLine(text string) (string, bool) {
	if err := e.L.CallByParam(glua.P{
		Fn:      e.getHooksCall(),
		NRet:    2,
		Protect: true,
	}, glua.LString("line"), glua.LString(text)); err != nil {
		return text, true
	}

	show := e.L.Get(-1)
	modified := e.L.Get(-2)
	e.L.Pop(2)

	if show == glua.LFalse {
		return "", false
	}
	return modified.String(), true
}

// OnInput handles user typing. Returns false if a hook consumed the input.
func (e *Engine) OnInput(text string) bool {
	if err := e.L.CallByParam(glua.P{
		Fn:      e.getHooksCall(),
		NRet:    2,
		Protect: true,
	}, glua.LString("input"), glua.LString(text)); err != nil {
		return true
	}

	show := e.L.Get(-1)
	e.L.Pop(2)

	return show != glua.LFalse
}

// CallHook calls a hook event with string arguments.
func (e *Engine) CallHook(event string, args ...string) {
	luaArgs := make([]glua.LValue, len(args)+1)
	luaArgs[0] = glua.LString(event)
	for i, arg := range args {
		luaArgs[i+1] = glua.LString(arg)
	}

	e.L.CallByParam(glua.P{
		Fn:      e.getHooksCall(),
		NRet:    0,
		Protect: true,
	}, luaArgs...)
}

// --- API Registration ---

func (e *Engine) registerAPIs() {
	e.ternTable = e.L.NewTable()
	e.L.SetGlobal("tern", e.ternTable)

	e.L.SetField(e.ternTable, "send", e.L.NewFunction(e.luaSend))
	e.L.SetField(e.ternTable, "print", e.L.NewFunction(e.luaPrint))
	e.L.SetField(e.ternTable, "match", e.L.NewFunction(e.luaMatch))
	e.L.SetField(e.ternTable, "strip_ansi", e.L.NewFunction(e.luaStripAnsi))
}

func (e *Engine) luaSend(L *glua.LState) int {
	e.host.Send(L.CheckString(1))
	return 0
}

func (e *Engine) luaPrint(L *glua.LState) int {
	e.host.Print(L.CheckString(1))
	return 0
}

// luaMatch runs a Go regex against text. Returns the full match followed
// by any captures, or nil on no match or a bad pattern.
func (e *Engine) luaMatch(L *glua.LState) int {
	pattern := L.CheckString(1)
	text := L.CheckString(2)

	re, err := e.compile(pattern)
	if err != nil {
		L.Push(glua.LNil)
		return 1
	}

	groups := re.FindStringSubmatch(stripAnsi(text))
	if groups == nil {
		L.Push(glua.LNil)
		return 1
	}
	for _, g := range groups {
		L.Push(glua.LString(g))
	}
	return len(groups)
}

func (e *Engine) luaStripAnsi(L *glua.LState) int {
	L.Push(glua.LString(stripAnsi(L.CheckString(1))))
	return 1
}

// getHooksCall returns the tern.hooks.call function.
func (e *Engine) getHooksCall() glua.LValue {
	hooksTable := e.L.GetField(e.ternTable, "hooks").(*glua.LTable)
	return e.L.GetField(hooksTable, "call")
}

// compile returns a cached compiled regex.
func (e *Engine) compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := e.regexCache.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	e.regexCache.Add(pattern, re)
	return re, nil
}

// --- Private Helpers ---

// stripAnsi removes ANSI escape codes from a string.
func stripAnsi(s string) string {
	var result strings.Builder
	inEscape := false
	for _, r := range s {
		if r == '\x1b' {
			inEscape = true
			continue
		}
		if inEscape {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}

// expandTilde expands ~ to home directory.
func expandTilde(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
