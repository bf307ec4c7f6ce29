package protocol

// Command is the closed set of render:cmd instructions. Only the types in
// this file implement it.
type Command interface {
	Name() string
	isCommand()
}

const (
	CmdAck           = "ack"
	CmdMarkdown      = "markdown"
	CmdContainerSize = "containerSize"
	CmdBranding      = "branding"
)

// Ack tells the frame the host listener is attached.
type Ack struct{}

// Markdown hands the frame diagram source taken from rendered markdown.
type Markdown struct {
	Data  string  `json:"data"`
	Width float64 `json:"width"`
}

// ContainerSize reports a new host container width.
type ContainerSize struct {
	Width float64 `json:"width"`
}

// Branding asks the frame to drop its embedded presentation.
type Branding struct{}

func (Ack) Name() string           { return CmdAck }
func (Markdown) Name() string      { return CmdMarkdown }
func (ContainerSize) Name() string { return CmdContainerSize }
func (Branding) Name() string      { return CmdBranding }

func (Ack) isCommand()           {}
func (Markdown) isCommand()      {}
func (ContainerSize) isCommand() {}
func (Branding) isCommand()      {}
