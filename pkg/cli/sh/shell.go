// Package sh provides an interactive shell over a probe.
package sh

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/abiosoft/ishell"
	"github.com/sugawarayuuta/sonnet"

	"github.com/robotalks/rtt.go/pkg/rtt/probe"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell *ishell.Shell
	Probe *probe.Probe
	Tail  *Tail
}

const (
	shellKey = "$shell"
	prompt   = "rtt > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&ChannelsCmd,
		&ReadCmd,
		&WriteCmd,
		&StatsCmd,
		&RefreshCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// EvalOnly reports whether -e was given.
func EvalOnly() bool {
	return evalOnly
}

// New creates a new shell. tail must receive the data drained by the
// probe poller for read to show anything.
func New(p *probe.Probe, tail *Tail) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell: ishell.New(),
		Probe: p,
		Tail:  tail,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Run runs the shell, or only args as a command when given.
func (s *Shell) Run(args ...string) error {
	if len(args) > 0 {
		return s.Shell.Process(args...)
	}
	if s.Interactive {
		s.Shell.Run()
		return nil
	}
	return fmt.Errorf("command expected")
}

// Channels prints the channel list.
func (s *Shell) Channels(w io.Writer) error {
	up, down := s.Probe.Channels()
	if s.OutputJSON {
		return s.printJSON(w, append(up, down...))
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DIR\tINDEX\tNAME\tSIZE\tMODE\tADDR")
	for _, chs := range [][]probe.ChannelInfo{up, down} {
		for _, info := range chs {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\t0x%08x\n",
				info.Direction, info.Index, info.Name, info.Size, info.Mode, info.Buffer)
		}
	}
	return tw.Flush()
}

// Read prints up to limit bytes (all if limit <= 0) received on up channel
// index since the last read.
func (s *Shell) Read(w io.Writer, index, limit int) error {
	if _, err := s.Probe.Channel(probe.Up, index); err != nil {
		return err
	}
	data := s.Tail.Take(index, limit)
	if s.OutputJSON {
		return s.printJSON(w, map[string]interface{}{"channel": index, "data": string(data)})
	}
	_, err := w.Write(data)
	return err
}

// Write sends text to down channel index and reports the bytes accepted.
func (s *Shell) Write(w io.Writer, index int, text string) error {
	n, err := s.Probe.WriteDown(index, []byte(text))
	if err != nil {
		return err
	}
	if s.OutputJSON {
		return s.printJSON(w, map[string]int{"written": n, "dropped": len(text) - n})
	}
	if n < len(text) {
		fmt.Fprintf(w, "%d bytes written, %d dropped\n", n, len(text)-n)
		return nil
	}
	fmt.Fprintf(w, "%d bytes written\n", n)
	return nil
}

// ChannelStats is one line of Stats.
type ChannelStats struct {
	Direction probe.Direction `json:"direction"`
	Index     int             `json:"index"`
	Bytes     uint64          `json:"bytes"`
	Buffered  int             `json:"buffered,omitempty"`
	Dropped   uint64          `json:"dropped,omitempty"`
}

// Stats prints bytes moved per channel.
func (s *Shell) Stats(w io.Writer) error {
	up, down := s.Probe.Channels()
	var stats []ChannelStats
	for _, info := range up {
		stats = append(stats, ChannelStats{
			Direction: probe.Up,
			Index:     info.Index,
			Bytes:     info.Bytes,
			Buffered:  s.Tail.Buffered(info.Index),
			Dropped:   s.Tail.Dropped(info.Index),
		})
	}
	for _, info := range down {
		stats = append(stats, ChannelStats{Direction: probe.Down, Index: info.Index, Bytes: info.Bytes})
	}
	if s.OutputJSON {
		return s.printJSON(w, stats)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DIR\tINDEX\tBYTES\tBUFFERED\tDROPPED")
	for _, st := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", st.Direction, st.Index, st.Bytes, st.Buffered, st.Dropped)
	}
	return tw.Flush()
}

func (s *Shell) printJSON(w io.Writer, v interface{}) error {
	out, err := sonnet.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

type ctxWriter struct {
	c *ishell.Context
}

func (w ctxWriter) Write(p []byte) (int, error) {
	w.c.Print(string(p))
	return len(p), nil
}

func channelArg(c *ishell.Context, n int) (int, bool) {
	if len(c.Args) <= n {
		c.Err(fmt.Errorf("CHANNEL required"))
		return 0, false
	}
	index, err := strconv.Atoi(c.Args[n])
	if err != nil {
		c.Err(fmt.Errorf("Invalid CHANNEL: %v", err))
		return 0, false
	}
	return index, true
}

var (
	// ChannelsCmd lists channels.
	ChannelsCmd = ishell.Cmd{
		Name:    "channels",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			if err := ShellFrom(c).Channels(ctxWriter{c}); err != nil {
				c.Err(err)
			}
		},
	}

	// ReadCmd prints data received on an up channel.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "CHANNEL [MAX]",
		Func: func(c *ishell.Context) {
			index, ok := channelArg(c, 0)
			if !ok {
				return
			}
			limit := 0
			if len(c.Args) > 1 {
				val, err := strconv.Atoi(c.Args[1])
				if err != nil {
					c.Err(fmt.Errorf("Invalid MAX: %v", err))
					return
				}
				limit = val
			}
			if err := ShellFrom(c).Read(ctxWriter{c}, index, limit); err != nil {
				c.Err(err)
			}
		},
	}

	// WriteCmd sends a line to a down channel.
	WriteCmd = ishell.Cmd{
		Name:    "write",
		Aliases: []string{"w"},
		Help:    "CHANNEL TEXT...",
		Func: func(c *ishell.Context) {
			index, ok := channelArg(c, 0)
			if !ok {
				return
			}
			text := strings.Join(c.Args[1:], " ") + "\n"
			if err := ShellFrom(c).Write(ctxWriter{c}, index, text); err != nil {
				c.Err(err)
			}
		},
	}

	// StatsCmd prints transfer counters.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "",
		Func: func(c *ishell.Context) {
			if err := ShellFrom(c).Stats(ctxWriter{c}); err != nil {
				c.Err(err)
			}
		},
	}

	// RefreshCmd re-reads the control block.
	RefreshCmd = ishell.Cmd{
		Name: "refresh",
		Help: "",
		Func: func(c *ishell.Context) {
			if err := ShellFrom(c).Probe.Refresh(); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	}
)
