package cmd

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/xid"

	"github.com/mlazoy/Chord-DHT/registry"
	"github.com/mlazoy/Chord-DHT/registry/standard"
	"github.com/mlazoy/Chord-DHT/transport"
	"github.com/mlazoy/Chord-DHT/types"
	"golang.org/x/xerrors"
)

// Exit codes of the client.
const (
	ExitOK       = 0
	ExitProtocol = 1
	ExitUsage    = 2
)

const clientTimeout = time.Second * 10

// client holds the reply socket of one CLI invocation. Replies come back on
// it because nodes answer by dialing the originator.
type client struct {
	sock     transport.ClosableSocket
	self     types.Endpoint
	registry registry.Registry
	dest     string
}

func newClient(ip string, port uint16) (*client, error) {
	sock, err := tcpFac().CreateSocket(net.JoinHostPort(LocalIP(), "0"))
	if err != nil {
		return nil, xerrors.Errorf("failed to open reply socket: %v", err)
	}

	self, err := types.ParseEndpoint(sock.GetAddress())
	if err != nil {
		sock.Close()
		return nil, err
	}

	return &client{
		sock:     sock,
		self:     self,
		registry: standard.NewRegistry(),
		dest:     net.JoinHostPort(ip, strconv.Itoa(int(port))),
	}, nil
}

func (c *client) close() {
	c.sock.Close()
}

// request sends one message to the contacted node and waits for the reply
// correlated by the request id.
func (c *client) request(msg types.Message) (types.Message, error) {
	msgTrans, err := c.registry.MarshalMessage(msg)
	if err != nil {
		return nil, err
	}

	header := transport.NewHeader(xid.New().String(), c.self)
	pkt := transport.Packet{Header: &header, Msg: &msgTrans}

	err = c.sock.Send(c.dest, pkt, clientTimeout)
	if err != nil {
		return nil, xerrors.Errorf("could not reach node at %s: %v", c.dest, err)
	}

	deadline := time.Now().Add(clientTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, transport.TimeoutError(clientTimeout)
		}

		reply, err := c.sock.Recv(remaining)
		if err != nil {
			return nil, err
		}
		if reply.Header.RequestID != header.RequestID {
			continue
		}
		return c.decode(reply.Msg)
	}
}

func (c *client) decode(msg *transport.Message) (types.Message, error) {
	var reply types.Message
	switch msg.Type {
	case (types.QueryReplyMessage{}).Name():
		reply = &types.QueryReplyMessage{}
	case (types.OverlayReplyMessage{}).Name():
		reply = &types.OverlayReplyMessage{}
	case (types.ScanReplyMessage{}).Name():
		reply = &types.ScanReplyMessage{}
	case (types.ErrorMessage{}).Name():
		reply = &types.ErrorMessage{}
	default:
		return nil, xerrors.Errorf("unexpected reply kind %q", msg.Type)
	}

	err := c.registry.UnmarshalMessage(msg, reply)
	if err != nil {
		return nil, err
	}

	if errMsg, ok := reply.(*types.ErrorMessage); ok {
		return nil, xerrors.Errorf("%s error: %s", errMsg.Code, errMsg.Reason)
	}
	return reply, nil
}

func usage() {
	fmt.Println("Usage: chord-dht cli <ip> <port> <command> [args]")
	fmt.Println("Available commands:")
	fmt.Println("  insert <key> <value>  => Insert a (key,value) in the DHT")
	fmt.Println("  insert -f <file>      => Bulk insert, one '<key>, <value>' per line")
	fmt.Println("  query <key>           => Query the DHT for a specific key, or '*' for all")
	fmt.Println("  query -f <file>       => Bulk query, one key per line")
	fmt.Println("  delete <key>          => Delete the given key from the DHT")
	fmt.Println("  overlay               => Print the chord ring topology")
	fmt.Println("  scan                  => Print every record of the ring")
	fmt.Println("  depart                => Gracefully remove the contacted node")
	fmt.Println("  requests <file>       => Run a benchmark request file")
	fmt.Println("  help                  => Show this help message")
}

// RunCLI executes one client command against a node of the ring and returns
// the process exit code.
func RunCLI(args []string) int {
	if len(args) >= 1 && args[0] == "help" {
		usage()
		return ExitOK
	}
	if len(args) < 3 {
		usage()
		return ExitUsage
	}

	ip := args[0]
	if net.ParseIP(ip) == nil {
		fmt.Fprintf(os.Stderr, "invalid IP address %q\n", ip)
		return ExitUsage
	}
	port, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid port %q\n", args[1])
		return ExitUsage
	}

	cl, err := newClient(ip, uint16(port))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitProtocol
	}
	defer cl.close()

	command := args[2]
	rest := args[3:]

	switch command {
	case "insert":
		return cl.runInsert(rest)
	case "query":
		return cl.runQuery(rest)
	case "delete":
		return cl.runDelete(rest)
	case "overlay":
		return cl.runOverlay()
	case "scan":
		return cl.runScan()
	case "depart":
		return cl.runDepart()
	case "requests":
		return cl.runRequests(rest)
	case "help":
		usage()
		return ExitOK
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)
		usage()
		return ExitUsage
	}
}

func (c *client) insertOne(key, value string) error {
	reply, err := c.request(types.InsertMessage{Key: key, Value: value})
	if err != nil {
		return err
	}
	if _, ok := reply.(*types.QueryReplyMessage); !ok {
		return xerrors.Errorf("unexpected reply %T", reply)
	}
	color.Green("Inserted (🔑 %s : 🔒 %s) successfully!", key, value)
	return nil
}

func (c *client) runInsert(args []string) int {
	if len(args) == 2 && args[0] == "-f" {
		content, err := os.ReadFile(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", args[1], err)
			return ExitUsage
		}
		for _, line := range strings.Split(string(content), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			key, value := splitRecord(line)
			if err := c.insertOne(key, value); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return ExitProtocol
			}
		}
		return ExitOK
	}

	if len(args) != 2 {
		usage()
		return ExitUsage
	}
	if err := c.insertOne(args[0], args[1]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitProtocol
	}
	return ExitOK
}

// splitRecord splits a bulk-insert line into key and value. Lines carry
// either "key, value" or a bare key which doubles as its value.
func splitRecord(line string) (string, string) {
	if idx := strings.Index(line, ","); idx >= 0 {
		return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:])
	}
	return line, line
}

func (c *client) queryOne(key string) error {
	reply, err := c.request(types.QueryMessage{Key: key})
	if err != nil {
		return err
	}
	qReply, ok := reply.(*types.QueryReplyMessage)
	if !ok {
		return xerrors.Errorf("unexpected reply %T", reply)
	}
	if qReply.Miss {
		color.Red("🔑 %s doesn't exist", key)
		return nil
	}
	color.Green("Found (🔑 %s : 🔒 %s)", qReply.Key, qReply.Value)
	return nil
}

func (c *client) runQuery(args []string) int {
	if len(args) == 2 && args[0] == "-f" {
		content, err := os.ReadFile(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", args[1], err)
			return ExitUsage
		}
		for _, line := range strings.Split(string(content), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if err := c.queryOne(line); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return ExitProtocol
			}
		}
		return ExitOK
	}

	if len(args) != 1 {
		usage()
		return ExitUsage
	}
	if args[0] == "*" {
		return c.runScan()
	}
	if err := c.queryOne(args[0]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitProtocol
	}
	return ExitOK
}

func (c *client) runDelete(args []string) int {
	if len(args) != 1 {
		usage()
		return ExitUsage
	}

	reply, err := c.request(types.DeleteMessage{Key: args[0]})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitProtocol
	}
	qReply, ok := reply.(*types.QueryReplyMessage)
	if !ok {
		fmt.Fprintf(os.Stderr, "unexpected reply %T\n", reply)
		return ExitProtocol
	}
	if qReply.Miss {
		color.Red("🔑 %s doesn't exist", args[0])
		return ExitOK
	}
	color.Green("Deleted 🔑 %s successfully!", args[0])
	return ExitOK
}

func (c *client) runOverlay() int {
	reply, err := c.request(types.OverlayMessage{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitProtocol
	}
	ovReply, ok := reply.(*types.OverlayReplyMessage)
	if !ok {
		fmt.Fprintf(os.Stderr, "unexpected reply %T\n", reply)
		return ExitProtocol
	}
	fmt.Print(FormatOverlay(ovReply.Peers))
	return ExitOK
}

func (c *client) runScan() int {
	reply, err := c.request(types.ScanMessage{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitProtocol
	}
	sReply, ok := reply.(*types.ScanReplyMessage)
	if !ok {
		fmt.Fprintf(os.Stderr, "unexpected reply %T\n", reply)
		return ExitProtocol
	}
	fmt.Print(FormatScan(sReply.Entries))
	return ExitOK
}

func (c *client) runDepart() int {
	reply, err := c.request(types.DepartMessage{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitProtocol
	}
	if _, ok := reply.(*types.QueryReplyMessage); !ok {
		fmt.Fprintf(os.Stderr, "unexpected reply %T\n", reply)
		return ExitProtocol
	}
	color.HiYellow("Node has left the ring 👋")
	return ExitOK
}

func (c *client) runRequests(args []string) int {
	if len(args) != 1 {
		usage()
		return ExitUsage
	}

	content, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", args[0], err)
		return ExitUsage
	}

	requests, err := ParseRequests(string(content))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitUsage
	}

	responseFile, err := os.Create(args[0] + "_response.txt")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create response file: %v\n", err)
		return ExitUsage
	}
	defer responseFile.Close()

	for _, req := range requests {
		var outcome string
		switch req.Op {
		case "insert":
			err = c.insertOne(req.Key, req.Value)
			outcome = fmt.Sprintf("insert %s", req.Key)
		case "query":
			err = c.queryOne(req.Key)
			outcome = fmt.Sprintf("query %s", req.Key)
		case "delete":
			_, err = c.request(types.DeleteMessage{Key: req.Key})
			outcome = fmt.Sprintf("delete %s", req.Key)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return ExitProtocol
		}
		fmt.Fprintf(responseFile, "Request: %s | OK\n", outcome)
	}
	return ExitOK
}
