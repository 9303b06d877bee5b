package daemonmsg

type System struct {
	SystemVersion string `json:"ver"`
	Message       string `json:"msg"`
}

func NewSystemMessage(version string, msg string) *Message {
	return New(MsgSystem, &System{
		SystemVersion: version,
		Message:       msg,
	})
}

// StatusText is pushed by the daemon whenever the status line of a root changes.
type StatusText struct {
	Root string `json:"root,omitempty"`
	Text string `json:"text"`
}

func NewStatusText(root string, text string) *Message {
	return New(MsgStatusText, &StatusText{Root: root, Text: text})
}
