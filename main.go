package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/mlazoy/Chord-DHT/cmd"
	"github.com/mlazoy/Chord-DHT/types"
)

func usage() {
	fmt.Fprintf(os.Stderr,
		"Usage: %s [bootstrap <R> <mode> | node <port-index> | cli <ip> <port> <command> [args]]\n"+
			"  bootstrap <R> <mode>  => start the bootstrap node; R > 0, mode 0 (eventual) or 1 (chain)\n"+
			"  node <port-index>     => start a node listening on %d + index and join the ring\n"+
			"  cli ...               => send a command to a running node ('cli help' for details)\n",
		os.Args[0], cmd.BasePort)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(cmd.ExitUsage)
	}

	switch args[0] {
	case "bootstrap":
		if len(args) < 3 {
			usage()
			os.Exit(cmd.ExitUsage)
		}
		factor, err := strconv.Atoi(args[1])
		if err != nil || factor < 1 {
			fmt.Fprintf(os.Stderr, "invalid replica factor %q: must be > 0\n", args[1])
			os.Exit(cmd.ExitUsage)
		}
		modeCode, err := strconv.Atoi(args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid consistency mode %q: want 0 (eventual) or 1 (chain)\n", args[2])
			os.Exit(cmd.ExitUsage)
		}
		mode, err := types.ParseConsistency(modeCode)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(cmd.ExitUsage)
		}

		node, err := cmd.StartBootstrap(uint(factor), mode)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(cmd.ExitProtocol)
		}
		defer node.Stop()
		cmd.Console(node)

	case "node":
		if len(args) < 2 {
			usage()
			os.Exit(cmd.ExitUsage)
		}
		index, err := strconv.ParseUint(args[1], 10, 16)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid port index %q\n", args[1])
			os.Exit(cmd.ExitUsage)
		}

		node, err := cmd.StartNode(uint16(index))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(cmd.ExitProtocol)
		}
		defer node.Stop()
		cmd.Console(node)

	case "cli":
		os.Exit(cmd.RunCLI(args[1:]))

	case "help":
		usage()

	default:
		usage()
		os.Exit(cmd.ExitUsage)
	}
}
