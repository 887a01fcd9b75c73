package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nerrad567/gray-logic-dictionary/internal/access"
	"github.com/nerrad567/gray-logic-dictionary/internal/tree"
	"github.com/nerrad567/gray-logic-dictionary/internal/transport"
	"github.com/nerrad567/gray-logic-dictionary/internal/updates"
)

// command describes one console verb. max < 0 means unbounded.
type command struct {
	usage string
	min   int
	max   int
	bare  bool
	quit  bool
	run   func(c *conn, args []string) ([]string, error)
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"get":         {usage: "get <uri>", min: 1, max: 1, bare: true, run: cmdGet},
		"set":         {usage: "set <uri> <literal>", min: 2, max: 2, run: cmdSet},
		"signal":      {usage: "signal <uri>", min: 1, max: 1, run: cmdSignal},
		"subscribe":   {usage: "subscribe <uri>", min: 1, max: 1, run: cmdSubscribe},
		"unsubscribe": {usage: "unsubscribe <uri>", min: 1, max: 1, run: cmdUnsubscribe},
		"browse":      {usage: "browse [uri]", min: 0, max: 1, run: cmdBrowse},
		"userlevel":   {usage: "userlevel [level [credential]]", min: 0, max: 2, bare: true, run: cmdUserlevel},
		"poll":        {usage: "poll", run: cmdPoll},
		"help":        {usage: "help", run: cmdHelp},
		"quit":        {usage: "quit", quit: true, run: cmdQuit},
	}
}

func cmdGet(c *conn, args []string) ([]string, error) {
	v, err := c.client.Get(args[0])
	if err != nil {
		return nil, err
	}
	return []string{v.String()}, nil
}

func cmdSet(c *conn, args []string) ([]string, error) {
	if err := transport.CheckWritable(c.client); err != nil {
		return nil, err
	}
	v, err := transport.ParseLiteral(c.client, args[0], args[1])
	if err != nil {
		return nil, err
	}
	return nil, c.client.Set(args[0], v)
}

func cmdSignal(c *conn, args []string) ([]string, error) {
	if err := transport.CheckWritable(c.client); err != nil {
		return nil, err
	}
	return nil, c.client.Signal(args[0])
}

func cmdSubscribe(c *conn, args []string) ([]string, error) {
	return nil, c.client.Subscribe(args[0])
}

func cmdUnsubscribe(c *conn, args []string) ([]string, error) {
	return nil, c.client.Unsubscribe(args[0])
}

func cmdBrowse(c *conn, args []string) ([]string, error) {
	root := ""
	if len(args) == 1 {
		root = args[0]
	}
	var lines []string
	err := c.client.Browse(root, func(info tree.Info) error {
		lines = append(lines, formatInfo(info))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// formatInfo renders a browse line:
//
//	laser1 container
//	laser1:power parameter float rw readonly/normal 0.5
//	laser1:fire event service
//
// Parameters whose value the session may not read show "-".
func formatInfo(info tree.Info) string {
	uri := info.URI
	if uri == "" {
		uri = tree.Separator
	}
	switch info.Kind {
	case tree.KindParameter:
		mode := "rw"
		if info.ReadOnly {
			mode = "ro"
		}
		val := "-"
		if info.Value.IsValid() {
			val = info.Value.String()
		}
		return fmt.Sprintf("%s parameter %s %s %s/%s %s", uri, info.Type, mode, info.ReadLevel, info.WriteLevel, val)
	case tree.KindEvent:
		return fmt.Sprintf("%s event %s", uri, info.WriteLevel)
	}
	return uri + " container"
}

// redact masks the credential of a userlevel request. Fields are split on
// whitespace so a line shellwords rejects is masked too.
func redact(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 3 || !strings.EqualFold(fields[0], "userlevel") {
		return line
	}
	return fields[0] + " " + fields[1] + " " + transport.Redacted
}

func cmdUserlevel(c *conn, args []string) ([]string, error) {
	if len(args) == 0 {
		return []string{c.client.Userlevel().String()}, nil
	}
	level, err := access.ParseUserlevel(args[0])
	if err != nil {
		return nil, err
	}
	credential := ""
	if len(args) == 2 {
		credential = args[1]
	}
	return nil, c.client.ChangeUserlevel(level, credential)
}

func cmdPoll(c *conn, _ []string) ([]string, error) {
	var lines []string
	c.client.Drain(func(u updates.Update) {
		lines = append(lines, formatUpdate(u))
	})
	return lines, nil
}

func cmdHelp(_ *conn, _ []string) ([]string, error) {
	lines := make([]string, 0, len(commands))
	for _, cmd := range commands {
		lines = append(lines, cmd.usage)
	}
	slices.Sort(lines)
	return lines, nil
}

func cmdQuit(_ *conn, _ []string) ([]string, error) {
	return nil, nil
}
