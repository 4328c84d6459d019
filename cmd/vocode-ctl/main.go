package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	cli "github.com/spf13/pflag"

	"vocode/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Daemon control socket")
	timeout := cli.DurationP("timeout", "t", 3*time.Minute, "How long to wait for the reply")
	cli.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: vocode-ctl [flags] toggle|start|stop|listen|ask <text>\n")
		cli.PrintDefaults()
	}
	cli.Parse()

	args := cli.Args()
	msg := ipc.ControlMessage{Cmd: ipc.CmdToggle}
	if len(args) > 0 {
		msg.Cmd = args[0]
		msg.Text = strings.Join(args[1:], " ")
	}

	reply, err := ipc.SendCommand(*socket, msg, *timeout)
	if err != nil {
		fmt.Println("vocode daemon not running:", err)
		os.Exit(1)
	}

	if !reply.OK {
		fmt.Println("error:", reply.Error)
		os.Exit(1)
	}
	fmt.Println(reply.Text)
}
