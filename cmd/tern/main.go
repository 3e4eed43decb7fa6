package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mercer/tern/client"
	"github.com/mercer/tern/config"
	"github.com/mercer/tern/debug"
	"github.com/mercer/tern/event"
	"github.com/mercer/tern/internal/buffer"
	"github.com/mercer/tern/script"
	"github.com/mercer/tern/telnet"
	"github.com/mercer/tern/ui"
)

// pollTimeout is the nominal timeout for each read cycle; the rolling
// quiet period is 1% of this, so output renders promptly.
const pollTimeout = 2 * time.Second

// app wires the client, script engine, and UI together.
type app struct {
	current  atomic.Pointer[client.Client]
	eventsIn chan<- event.Event
	tui      ui.UI
	cfg      telnet.Config
	ctx      context.Context
}

// Print implements script.Host.
func (a *app) Print(text string) {
	a.tui.Render(text)
}

// Send implements script.Host.
func (a *app) Send(data string) {
	if c := a.current.Load(); c != nil {
		c.SendLine(data)
	}
}

// stats feeds the debug monitor.
func (a *app) stats() *client.Stats {
	c := a.current.Load()
	if c == nil {
		return nil
	}
	s := c.Stats()
	return &s
}

// connect dials the server and starts the poll loop.
func (a *app) connect(addr string) error {
	a.disconnect()

	c, err := client.Dial(addr, a.cfg)
	if err != nil {
		return err
	}
	a.current.Store(c)
	a.tui.SetStatus("tern - " + addr)
	go a.pollLoop(c)
	return nil
}

// disconnect closes the current connection, if any.
func (a *app) disconnect() {
	if c := a.current.Swap(nil); c != nil {
		c.Close()
		a.tui.SetStatus("tern - not connected")
	}
}

// pollLoop runs read cycles against one connection, turning each
// response into line and prompt events.
func (a *app) pollLoop(c *client.Client) {
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-c.Done():
			a.current.CompareAndSwap(c, nil)
			a.eventsIn <- event.Event{Type: event.NetClosed}
			return
		default:
		}

		if a.current.Load() != c {
			return
		}

		resp, err := c.Read(a.ctx, pollTimeout)
		if err != nil {
			return
		}
		if resp == "" {
			continue
		}

		lines, prompt := splitResponse(resp)
		for _, line := range lines {
			a.eventsIn <- event.Event{Type: event.NetLine, Payload: line}
		}
		if prompt != "" {
			a.eventsIn <- event.Event{Type: event.NetPrompt, Payload: prompt}
		}
	}
}

// splitResponse breaks a read cycle's payload into complete lines plus a
// trailing partial line (usually the server's prompt).
func splitResponse(resp string) ([]string, string) {
	resp = strings.ReplaceAll(resp, "\r", "")
	parts := strings.Split(resp, "\n")
	return parts[:len(parts)-1], parts[len(parts)-1]
}

func main() {
	simpleUI := flag.Bool("simple", false, "Use simple console UI instead of TUI")
	termType := flag.String("ttype", telnet.DefaultTerminalType, "Negotiated terminal type")
	termSpeed := flag.String("tspeed", telnet.DefaultTerminalSpeed, "Negotiated terminal speed")
	connectTo := flag.String("connect", "", "Server address (host:port) to connect on startup")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Event bus - unbounded buffer so producers never block or drop
	eventsIn, eventsOut := buffer.Unbounded[event.Event](100, 50000)

	a := &app{
		eventsIn: eventsIn,
		ctx:      ctx,
		cfg: telnet.Config{
			TerminalType:  *termType,
			TerminalSpeed: *termSpeed,
			Wait:          telnet.YieldStrategy{},
		},
	}
	if *simpleUI {
		a.tui = ui.NewConsoleUI()
	} else {
		a.tui = ui.NewTUI()
	}

	engine := script.NewEngine(a)
	if err := engine.Init(); err != nil {
		fmt.Println("Error initializing scripts:", err)
		os.Exit(1)
	}
	defer engine.Close()

	debug.NewMonitor(ctx, a.stats).Start()

	// UI -> event loop
	go func() {
		for line := range a.tui.Input() {
			eventsIn <- event.Event{Type: event.UserInput, Payload: line}
		}
	}()

	// Orchestrator loop - single goroutine owns the Lua state
	go func() {
		for ev := range eventsOut {
			switch ev.Type {

			case event.UserInput:
				a.handleInput(engine, ev.Payload)

			case event.NetLine:
				modified, keep := engine.OnLine(ev.Payload)
				if keep {
					a.tui.Render(modified)
				}

			case event.NetPrompt:
				a.tui.RenderPrompt(ev.Payload)

			case event.NetClosed:
				engine.CallHook("disconnected")
				a.tui.Render("[Disconnected]")
				a.tui.SetStatus("tern - not connected")

			case event.AsyncResult:
				if ev.Callback != nil {
					ev.Callback()
				}

			case event.SystemControl:
				switch ev.Control.Action {
				case event.ActionQuit:
					a.disconnect()
					a.tui.Quit()
					return
				case event.ActionConnect:
					a.doConnect(engine, ev.Control.Address)
				case event.ActionDisconnect:
					engine.CallHook("disconnecting")
					a.disconnect()
				case event.ActionLoadScript:
					if err := engine.DoFile(ev.Control.ScriptPath); err != nil {
						a.tui.Render("[Error] " + err.Error())
					}
				}
			}
		}
	}()

	// Script loading goes through the orchestrator so every Lua call after
	// Init happens on one goroutine, and so scripts that print do not run
	// before the UI is up.
	if _, err := os.Stat(config.InitFile()); err == nil {
		eventsIn <- event.Event{Type: event.SystemControl,
			Control: event.ControlOp{Action: event.ActionLoadScript, ScriptPath: config.InitFile()}}
	}
	for _, path := range flag.Args() {
		eventsIn <- event.Event{Type: event.SystemControl,
			Control: event.ControlOp{Action: event.ActionLoadScript, ScriptPath: path}}
	}

	if *connectTo != "" {
		eventsIn <- event.Event{Type: event.SystemControl,
			Control: event.ControlOp{Action: event.ActionConnect, Address: *connectTo}}
	}

	// Block on UI
	if err := a.tui.Run(); err != nil {
		fmt.Println("UI error:", err)
		os.Exit(1)
	}
}

// handleInput routes user input: slash commands are local, everything
// else goes through the input hooks and on to the server.
func (a *app) handleInput(engine *script.Engine, text string) {
	if cmd, rest, ok := slashCommand(text); ok {
		switch cmd {
		case "quit":
			a.eventsIn <- event.Event{Type: event.SystemControl,
				Control: event.ControlOp{Action: event.ActionQuit}}
		case "connect":
			a.eventsIn <- event.Event{Type: event.SystemControl,
				Control: event.ControlOp{Action: event.ActionConnect, Address: rest}}
		case "disconnect":
			a.eventsIn <- event.Event{Type: event.SystemControl,
				Control: event.ControlOp{Action: event.ActionDisconnect}}
		case "load":
			a.eventsIn <- event.Event{Type: event.SystemControl,
				Control: event.ControlOp{Action: event.ActionLoadScript, ScriptPath: rest}}
		default:
			a.tui.Render("[Unknown command /" + cmd + "]")
		}
		return
	}

	if !engine.OnInput(text) {
		return // consumed by a script
	}
	if c := a.current.Load(); c != nil {
		if err := c.SendLine(text); err != nil {
			a.tui.Render("[Error] " + err.Error())
		}
	} else {
		a.tui.Render("[Not connected - /connect host:port]")
	}
}

// doConnect runs the dial off the orchestrator goroutine and reports the
// result back as events.
func (a *app) doConnect(engine *script.Engine, addr string) {
	if addr == "" {
		a.tui.Render("[Usage: /connect host:port]")
		return
	}
	engine.CallHook("connecting", addr)
	go func() {
		err := a.connect(addr)
		a.eventsIn <- event.Event{Type: event.AsyncResult, Callback: func() {
			if err != nil {
				engine.CallHook("error", "Connection failed: "+err.Error())
				a.tui.Render("[Connection failed: " + err.Error() + "]")
				return
			}
			engine.CallHook("connected", addr)
			a.tui.Render("[Connected to " + addr + "]")
		}}
	}()
}

// slashCommand parses "/cmd rest" input.
func slashCommand(text string) (cmd, rest string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	fields := strings.SplitN(strings.TrimPrefix(text, "/"), " ", 2)
	cmd = fields[0]
	if len(fields) == 2 {
		rest = strings.TrimSpace(fields[1])
	}
	return cmd, rest, true
}
