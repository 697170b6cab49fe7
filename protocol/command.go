package protocol

// Command type strings accepted by the server.
const (
	TypeRegister  = "register"
	TypeLogin     = "login"
	TypeMessage   = "message"
	TypePrivate   = "private"
	TypeHeartbeat = "heartbeat"
	TypeHistory   = "history"
	TypeListUsers = "list_users"
	TypeLogout    = "logout"
)

// Reply type strings produced by the server.
const (
	TypeRegisterResult = "register_result"
	TypeLoginResult    = "login_result"
	TypePong           = "pong"
	TypeUserList       = "user_list"
	TypeError          = "error"
)

// Failure reasons and error codes carried in replies.
const (
	ReasonUsernameExists = "username_exists"
	ReasonInvalid        = "invalid"
	ErrNotLoggedIn       = "not_logged_in"
)

// Command is the inbound JSON envelope. Only Type is mandatory; the other
// fields are read per command type and ignored otherwise. Unknown or
// malformed commands are dropped without closing the connection.
type Command struct {
	Type     string `json:"type"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	To       string `json:"to,omitempty"`
	Text     string `json:"text,omitempty"`
	N        int    `json:"n,omitempty"`
}

// RegisterResult answers a register command.
type RegisterResult struct {
	Type   string `json:"type"`
	Ok     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// LoginResult answers a login command. Username is set only on success.
type LoginResult struct {
	Type     string `json:"type"`
	Ok       bool   `json:"ok"`
	Username string `json:"username,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Pong answers a heartbeat command.
type Pong struct {
	Type string `json:"type"`
}

// UserList carries the usernames currently online. It answers list_users and
// is broadcast to everyone on every registry change.
type UserList struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// ErrorReply reports a precondition failure, e.g. a message command issued
// before login.
type ErrorReply struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// ChatMsg is one chat message as persisted: an empty To means broadcast and
// Ts is milliseconds since the Unix epoch. Messages are never mutated after
// creation.
type ChatMsg struct {
	From string `json:"from"`
	To   string `json:"to,omitempty"`
	Text string `json:"text"`
	Ts   int64  `json:"ts"`
}

// WireType returns the frame type used when the message travels on the wire:
// "message" for broadcasts, "private" for directed messages.
func (m ChatMsg) WireType() string {
	if m.To == "" {
		return TypeMessage
	}
	return TypePrivate
}

// WireMsg is the on-the-wire form of a ChatMsg, with the type field set.
type WireMsg struct {
	Type string `json:"type"`
	From string `json:"from"`
	To   string `json:"to,omitempty"`
	Text string `json:"text"`
	Ts   int64  `json:"ts"`
}

// Wire converts the message to its frame payload form.
func (m ChatMsg) Wire() WireMsg {
	return WireMsg{Type: m.WireType(), From: m.From, To: m.To, Text: m.Text, Ts: m.Ts}
}
