package interpreter

// controlKind is the evaluator's unwind state. Every block, loop and switch
// checks it after each statement; nothing unwinds through Go errors except
// genuine runtime errors.
type controlKind int

const (
	controlRunning controlKind = iota
	controlBreak
	controlContinue
	controlReturn
	controlExit
)

func (k controlKind) String() string {
	switch k {
	case controlRunning:
		return "running"
	case controlBreak:
		return "break"
	case controlContinue:
		return "continue"
	case controlReturn:
		return "return"
	case controlExit:
		return "exit"
	default:
		return "unknown"
	}
}

type controlState struct {
	kind   controlKind
	target string
	code   int
}

func (c *controlState) running() bool { return c.kind == controlRunning }

func (c *controlState) requestBreak()    { c.kind = controlBreak }
func (c *controlState) requestContinue() { c.kind = controlContinue }

// requestReturn unwinds to the call scope named target.
func (c *controlState) requestReturn(target string) {
	c.kind = controlReturn
	c.target = target
}

func (c *controlState) requestExit(code int) {
	c.kind = controlExit
	c.code = code
}

func (c *controlState) reset() {
	c.kind = controlRunning
	c.target = ""
}

// unwinding reports a state that loops must not consume: return and exit.
func (c *controlState) unwinding() bool {
	return c.kind == controlReturn || c.kind == controlExit
}
