package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jroimartin/gocui"

	"github.com/cyberinferno/go-chat/client"
	"github.com/cyberinferno/go-chat/protocol"
)

// ChatUI is the terminal interface: a message pane, the online user list, a
// status bar, and an input field with slash commands.
type ChatUI struct {
	gui        *gocui.Gui
	chat       *client.Client
	msgView    string
	inputView  string
	statusView string
	userView   string
	helpView   string
	showHelp   bool
}

func NewChatUI(chat *client.Client) (*ChatUI, error) {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return nil, err
	}

	ui := &ChatUI{
		gui:        g,
		chat:       chat,
		msgView:    "messages",
		inputView:  "input",
		statusView: "status",
		userView:   "users",
		helpView:   "help",
	}

	g.SetManagerFunc(ui.layout)

	chat.OnFrame(ui.handleFrame)
	chat.OnState(func(event client.StateEvent) {
		ui.updateStatus(fmt.Sprintf("%s | %s", event.State, event.Address))
		if event.Error != nil {
			ui.appendMessage(fmt.Sprintf("! connection: %v", event.Error))
		}
	})
	chat.OnError(func(err error) {
		ui.appendMessage(fmt.Sprintf("! error: %v", err))
	})

	return ui, nil
}

func (ui *ChatUI) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	sidebarWidth := 20
	msgWidth := maxX - sidebarWidth - 1
	msgHeight := maxY - 5

	// Messages view
	if v, err := g.SetView(ui.msgView, 0, 0, msgWidth, msgHeight); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Messages"
		v.Wrap = true
		v.Autoscroll = true
	}

	// Users view
	if v, err := g.SetView(ui.userView, msgWidth+1, 0, maxX-1, msgHeight); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Online Users"
		v.Wrap = true
	}

	// Status bar
	if v, err := g.SetView(ui.statusView, 0, msgHeight+1, maxX-1, msgHeight+3); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Status"
		v.Wrap = true
		ui.updateStatus("Not logged in | /register <user> <pass>, /login <user> <pass> | Ctrl-H: Help")
	}

	// Input field
	if v, err := g.SetView(ui.inputView, 0, msgHeight+3, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Input"
		v.Editable = true
		v.Wrap = true

		if _, err := g.SetCurrentView(ui.inputView); err != nil {
			return err
		}
	}

	// Help window
	if ui.showHelp {
		helpX1 := maxX / 6
		helpY1 := maxY / 6
		helpX2 := maxX * 5 / 6
		helpY2 := maxY * 5 / 6
		if v, err := g.SetView(ui.helpView, helpX1, helpY1, helpX2, helpY2); err != nil {
			if err != gocui.ErrUnknownView {
				return err
			}
			v.Title = "Help"
			fmt.Fprintln(v, `Commands:
/help                 - Show this help
/register <user> <pw> - Create an account
/login <user> <pw>    - Log in
/msg <user> <text>    - Send private message
/history [n]          - Replay stored messages
/users                - List online users
/quit                 - Leave chat

Anything else is broadcast to everyone online.

Keybindings:
Ctrl-C                - Quit
Ctrl-H                - Toggle help
Enter                 - Send`)
		}
	} else {
		_ = g.DeleteView(ui.helpView)
	}

	return nil
}

// handleFrame renders one server frame into the message pane.
func (ui *ChatUI) handleFrame(event client.FrameEvent) {
	switch event.Type {
	case protocol.TypeRegisterResult:
		var res protocol.RegisterResult
		if err := json.Unmarshal(event.Payload, &res); err != nil {
			return
		}
		if res.Ok {
			ui.appendMessage("* registered, now /login")
		} else {
			ui.appendMessage(fmt.Sprintf("* registration failed: %s", res.Reason))
		}

	case protocol.TypeLoginResult:
		var res protocol.LoginResult
		if err := json.Unmarshal(event.Payload, &res); err != nil {
			return
		}
		if res.Ok {
			ui.chat.SetUsername(res.Username)
			ui.appendMessage(fmt.Sprintf("* logged in as %s", res.Username))
			ui.updateStatus(fmt.Sprintf("Logged in as %s | Ctrl-H: Help", res.Username))
		} else {
			ui.appendMessage(fmt.Sprintf("* login failed: %s", res.Reason))
		}

	case protocol.TypeMessage, protocol.TypePrivate:
		var msg protocol.WireMsg
		if err := json.Unmarshal(event.Payload, &msg); err != nil {
			return
		}
		stamp := time.UnixMilli(msg.Ts).Format("15:04:05")
		if msg.Type == protocol.TypePrivate {
			ui.appendMessage(fmt.Sprintf("[%s] %s -> %s: %s", stamp, msg.From, msg.To, msg.Text))
		} else {
			ui.appendMessage(fmt.Sprintf("[%s] %s: %s", stamp, msg.From, msg.Text))
		}

	case protocol.TypeUserList:
		ui.updateUsers()

	case protocol.TypeError:
		var res protocol.ErrorReply
		if err := json.Unmarshal(event.Payload, &res); err != nil {
			return
		}
		ui.appendMessage(fmt.Sprintf("! server: %s", res.Error))

	case protocol.TypePong:
		// Keepalive noise, nothing to show.
	}
}

func (ui *ChatUI) appendMessage(line string) {
	ui.gui.Update(func(g *gocui.Gui) error {
		v, err := g.View(ui.msgView)
		if err != nil {
			return err
		}
		fmt.Fprintln(v, line)
		return nil
	})
}

func (ui *ChatUI) updateUsers() {
	ui.gui.Update(func(g *gocui.Gui) error {
		v, err := g.View(ui.userView)
		if err != nil {
			return err
		}
		v.Clear()
		for _, name := range ui.chat.OnlineUsers() {
			fmt.Fprintln(v, name)
		}
		return nil
	})
}

func (ui *ChatUI) updateStatus(status string) {
	ui.gui.Update(func(g *gocui.Gui) error {
		v, err := g.View(ui.statusView)
		if err != nil {
			return err
		}
		v.Clear()
		fmt.Fprint(v, status)
		return nil
	})
}

func (ui *ChatUI) keybindings() error {
	// Quit
	if err := ui.gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone,
		func(g *gocui.Gui, _ *gocui.View) error {
			return gocui.ErrQuit
		}); err != nil {
		return err
	}

	// Toggle help
	if err := ui.gui.SetKeybinding("", gocui.KeyCtrlH, gocui.ModNone,
		func(_ *gocui.Gui, _ *gocui.View) error {
			ui.showHelp = !ui.showHelp
			return nil
		}); err != nil {
		return err
	}

	// Send
	if err := ui.gui.SetKeybinding(ui.inputView, gocui.KeyEnter, gocui.ModNone,
		ui.handleInput); err != nil {
		return err
	}

	return nil
}

func (ui *ChatUI) handleInput(_ *gocui.Gui, v *gocui.View) error {
	input := strings.TrimSpace(v.Buffer())
	v.Clear()
	_ = v.SetCursor(0, 0)
	if input == "" {
		return nil
	}

	if strings.HasPrefix(input, "/") {
		return ui.handleCommand(input)
	}

	if err := ui.chat.SendMessage(input); err != nil {
		ui.appendMessage(fmt.Sprintf("! send failed: %v", err))
		return nil
	}

	// Broadcasts are not echoed back, so show our own line locally.
	stamp := time.Now().Format("15:04:05")
	ui.appendMessage(fmt.Sprintf("[%s] %s: %s", stamp, ui.chat.Username(), input))

	return nil
}

func (ui *ChatUI) handleCommand(input string) error {
	parts := strings.Fields(input)
	var err error

	switch parts[0] {
	case "/help":
		ui.showHelp = !ui.showHelp

	case "/register":
		if len(parts) != 3 {
			ui.appendMessage("! usage: /register <user> <pass>")
			return nil
		}
		err = ui.chat.Register(parts[1], parts[2])

	case "/login":
		if len(parts) != 3 {
			ui.appendMessage("! usage: /login <user> <pass>")
			return nil
		}
		err = ui.chat.Login(parts[1], parts[2])

	case "/msg":
		if len(parts) < 3 {
			ui.appendMessage("! usage: /msg <user> <text>")
			return nil
		}
		err = ui.chat.SendPrivate(parts[1], strings.Join(parts[2:], " "))

	case "/history":
		n := 0
		if len(parts) > 1 {
			n, _ = strconv.Atoi(parts[1])
		}
		err = ui.chat.History(n)

	case "/users":
		err = ui.chat.ListUsers()

	case "/quit":
		_ = ui.chat.Logout()
		return gocui.ErrQuit

	default:
		ui.appendMessage(fmt.Sprintf("! unknown command %s", parts[0]))
	}

	if err != nil {
		ui.appendMessage(fmt.Sprintf("! send failed: %v", err))
	}

	return nil
}

func (ui *ChatUI) Run() error {
	if err := ui.keybindings(); err != nil {
		return err
	}

	if err := ui.gui.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}

	return nil
}

func (ui *ChatUI) Close() {
	ui.gui.Close()
}
