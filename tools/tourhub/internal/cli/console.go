package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// OperationType categorizes the work a task is doing.
type OperationType int

const (
	// OpUnknown is the default, un-categorized operation type.
	OpUnknown OperationType = iota
	// OpTransfer represents a task fetching a payload.
	OpTransfer
	// OpExtract represents a task unpacking an archive.
	OpExtract
)

// Idle thresholds for task lines.
const (
	idleAfter  = 5 * time.Second
	staleAfter = 10 * time.Second
)

type spinner struct {
	frames []string
	index  int
}

func newSpinner() *spinner {
	return &spinner{
		frames: []string{"⣷", "⣯", "⣟", "⡿", "⢿", "⣻", "⣽", "⣾"},
	}
}

func (s *spinner) next() string {
	frame := s.frames[s.index]
	s.index = (s.index + 1) % len(s.frames)
	return frame
}

func (s *spinner) current() string {
	return s.frames[s.index]
}

// managedTask holds the state for a single line in the console.
type managedTask struct {
	id           string
	msg          string
	opType       OperationType
	lastActivity time.Time // zero until the task first reports activity
	spinner      *spinner
}

// Console manages styled and dynamic CLI output.
type Console struct {
	mu          sync.Mutex
	w           io.Writer
	tasks       map[string]*managedTask
	taskOrder   []string
	isRendering bool
	isQuiet     bool
	animate     bool
	lastHeight  int
	stopped     chan struct{}

	Bold   *color.Color
	White  *color.Color
	Lime   *color.Color
	Green  *color.Color
	Yellow *color.Color
	Cyan   *color.Color
	Gray   *color.Color
	Orange *color.Color
}

// New creates a Console writing to stderr.
func New(quiet bool) *Console {
	return NewWriter(os.Stderr, quiet)
}

// NewWriter creates a Console writing to w. Task lines are only animated
// when w is a terminal.
func NewWriter(w io.Writer, quiet bool) *Console {
	animate := false
	if f, ok := w.(*os.File); ok {
		animate = term.IsTerminal(int(f.Fd()))
	}
	return &Console{
		w:         w,
		isQuiet:   quiet,
		animate:   animate,
		tasks:     make(map[string]*managedTask),
		taskOrder: make([]string, 0),
		Bold:      color.New(color.Bold),
		White:     color.New(color.FgWhite),
		Lime:      color.New(color.FgHiGreen),
		Green:     color.New(color.FgGreen),
		Yellow:    color.New(color.FgHiYellow),
		Cyan:      color.New(color.FgCyan),
		Gray:      color.New(color.FgHiBlack),
		Orange:    color.New(color.FgYellow),
	}
}

// Quiet reports whether non-error output is suppressed.
func (c *Console) Quiet() bool { return c.isQuiet }

func (c *Console) printStatic(msg string, force bool) {
	if c.isQuiet && !force {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastHeight > 0 {
		fmt.Fprintf(c.w, "\033[%dA\033[J", c.lastHeight)
	}
	c.lastHeight = 0
	fmt.Fprintln(c.w, msg)
}

// Info prints a plain message.
func (c *Console) Info(format string, a ...any) { c.printStatic(fmt.Sprintf(format, a...), false) }

// Success prints a message prefixed with a check mark.
func (c *Console) Success(format string, a ...any) {
	c.printStatic(c.Lime.Sprintf("✓ %s", fmt.Sprintf(format, a...)), false)
}

// Warn prints a warning.
func (c *Console) Warn(format string, a ...any) {
	c.printStatic(c.Yellow.Sprintf("! %s", fmt.Sprintf(format, a...)), false)
}

// Error prints an error. Errors are shown even in quiet mode.
func (c *Console) Error(format string, a ...any) {
	c.printStatic(c.Orange.Sprintf("✗ %s", fmt.Sprintf(format, a...)), true)
}

// AddTask adds a line to the multi-line display.
func (c *Console) AddTask(taskID, message string, opType OperationType) {
	if c.isQuiet || !c.animate {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tasks[taskID]; !exists {
		c.tasks[taskID] = &managedTask{id: taskID, msg: message, opType: opType, spinner: newSpinner()}
		c.taskOrder = append(c.taskOrder, taskID)
	}

	if !c.isRendering {
		c.isRendering = true
		c.stopped = make(chan struct{})
		go c.render(c.stopped)
	}
}

// UpdateTask replaces a task's message and marks it active.
func (c *Console) UpdateTask(taskID, message string) {
	if c.isQuiet || !c.animate {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if task, ok := c.tasks[taskID]; ok {
		task.msg = message
		task.lastActivity = time.Now()
	}
}

// SetTaskType switches the operation a task is doing.
func (c *Console) SetTaskType(taskID string, opType OperationType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if task, ok := c.tasks[taskID]; ok {
		task.opType = opType
	}
}

// RemoveTask removes a task from the display.
func (c *Console) RemoveTask(taskID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tasks, taskID)
	for i, id := range c.taskOrder {
		if id == taskID {
			c.taskOrder = append(c.taskOrder[:i], c.taskOrder[i+1:]...)
			break
		}
	}
}

// StopRenderer clears the task lines and waits for the renderer to exit.
func (c *Console) StopRenderer() {
	c.mu.Lock()
	if !c.isRendering {
		c.mu.Unlock()
		return
	}
	c.isRendering = false
	stopped := c.stopped
	c.mu.Unlock()
	<-stopped
}

func (c *Console) render(stopped chan struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		var b strings.Builder

		if !c.isRendering {
			if c.lastHeight > 0 {
				fmt.Fprintf(&b, "\033[%dA\033[J", c.lastHeight)
			}
			c.lastHeight = 0
			fmt.Fprint(c.w, b.String())
			c.mu.Unlock()
			return
		}

		if c.lastHeight > 0 {
			fmt.Fprintf(&b, "\033[%dA", c.lastHeight)
		}
		b.WriteString("\033[J")
		for _, taskID := range c.taskOrder {
			if task, ok := c.tasks[taskID]; ok {
				b.WriteString(c.line(task))
			}
		}

		// One write per frame to prevent flicker.
		fmt.Fprint(c.w, b.String())
		c.lastHeight = len(c.taskOrder)
		c.mu.Unlock()
	}
}

// line renders a task, coloured by how recently it reported activity.
func (c *Console) line(task *managedTask) string {
	since := time.Since(task.lastActivity)

	var sp, tx *color.Color
	frame := task.spinner.current()
	switch {
	case task.lastActivity.IsZero() || since > staleAfter:
		sp, tx = c.Orange, c.Orange
	case since > idleAfter:
		sp, tx = c.Gray, c.Gray
		if task.opType == OpTransfer {
			sp, tx = c.Green, c.Yellow
		}
	default:
		frame = task.spinner.next()
		sp, tx = c.Cyan, c.White
		if task.opType == OpTransfer {
			sp = c.Lime
		}
	}
	return fmt.Sprintf("%s %s %s\n", sp.Sprint(frame), c.Bold.Sprint(task.id+":"), tx.Sprint(task.msg))
}
