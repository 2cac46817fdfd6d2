package cmd

import (
	"fmt"
	"log"

	"github.com/AlecAivazis/survey/v2"
	"github.com/disiqueira/gotree"
	"github.com/fatih/color"

	"github.com/mlazoy/Chord-DHT/peer"
	"github.com/mlazoy/Chord-DHT/types"
)

// Console provides the interactive command line of a running node. It returns
// once the node has departed the ring, or when the user picks exit or the
// prompt fails; in those two cases the node has not departed.
func Console(node peer.Peer) {
	color.HiYellow("================================================\n"+
		"=======  Node started!                   =======\n"+
		"=======  Address  := %s\n"+
		"=======  Chord ID := %s\n"+
		"================================================\n",
		node.GetAddr(), node.GetChordID().Short())

	prompt := &survey.Select{
		Message: "What do you want to do ?",
		Options: []string{
			"🪐 show ring info",
			"📥 insert a record",
			"🔍 query a record",
			"🗑  delete a record",
			"🔗 print the overlay",
			"⭐ scan all records",
			"🕓 depart from the ring",
			"👋 exit"},
	}

	var action string
	for {
		err := survey.AskOne(prompt, &action)
		if err != nil {
			fmt.Println(err)
			return
		}

		switch action {
		case "🪐 show ring info":
			showRingInfo(node)
		case "📥 insert a record":
			err = insertRecord(node)
		case "🔍 query a record":
			err = queryRecord(node)
		case "🗑  delete a record":
			err = deleteRecord(node)
		case "🔗 print the overlay":
			err = printOverlay(node)
		case "⭐ scan all records":
			err = printScan(node)
		case "🕓 depart from the ring":
			err = node.Depart()
			if err == nil {
				color.HiYellow("=======  Departed the ring 👋")
				return
			}
		case "👋 exit":
			color.HiYellow("=======  Bye 👋")
			return
		}

		if err != nil {
			log.Printf("action failed: %v", err)
		}
	}
}

func showRingInfo(node peer.Peer) {
	succ := node.GetSuccessor()
	predStr := "(none)"
	if pred, ok := node.GetPredecessor(); ok {
		predStr = pred.String()
	}

	color.HiYellow("\n"+
		"=======  My address    := %s with Chord ID %s\n"+
		"=======  Predecessor   := %s\n"+
		"=======  Successor     := %s\n"+
		"=======  Ring length   := %d\n",
		node.GetAddr(), node.GetChordID().Short(), predStr, succ, node.RingLen())
}

func askKey() (string, error) {
	var key string
	err := survey.AskOne(
		&survey.Input{Message: "Enter the key: "},
		&key,
		survey.WithValidator(keyValidator))
	return key, err
}

func insertRecord(node peer.Peer) error {
	key, err := askKey()
	if err != nil {
		return err
	}

	var value string
	err = survey.AskOne(&survey.Input{Message: "Enter the value: "}, &value)
	if err != nil {
		return err
	}

	err = node.Insert(key, value)
	if err != nil {
		return err
	}
	color.Green("Inserted (🔑 %s : 🔒 %s) successfully!\n", key, value)
	return nil
}

func queryRecord(node peer.Peer) error {
	key, err := askKey()
	if err != nil {
		return err
	}

	value, ok, err := node.Query(key)
	if err != nil {
		return err
	}
	if !ok {
		color.Red("🔑 %s doesn't exist\n", key)
		return nil
	}
	color.Green("Found (🔑 %s : 🔒 %s)\n", key, value)
	return nil
}

func deleteRecord(node peer.Peer) error {
	key, err := askKey()
	if err != nil {
		return err
	}

	existed, err := node.Delete(key)
	if err != nil {
		return err
	}
	if !existed {
		color.Red("🔑 %s doesn't exist\n", key)
		return nil
	}
	color.Green("Deleted 🔑 %s successfully!\n", key)
	return nil
}

func printOverlay(node peer.Peer) error {
	peers, err := node.Overlay()
	if err != nil {
		return err
	}
	fmt.Print(FormatOverlay(peers))
	return nil
}

func printScan(node peer.Peer) error {
	entries, err := node.Scan()
	if err != nil {
		return err
	}
	fmt.Print(FormatScan(entries))
	return nil
}

// FormatOverlay renders the ring topology as a nested tree, one level per
// clockwise hop.
func FormatOverlay(peers []types.Endpoint) string {
	if len(peers) == 0 {
		return "(empty ring)\n"
	}

	root := gotree.New(fmt.Sprintf("RING OVERLAY 🔗 %s", peers[0]))
	branch := root
	for _, p := range peers[1:] {
		branch = branch.Add(p.String())
	}
	branch.Add(fmt.Sprintf("🔄 back to %s", peers[0]))
	return root.Print()
}

// FormatScan renders the records of the whole ring, grouped per node.
func FormatScan(entries []types.NodeItems) string {
	out := "****************\nALL RECORDS ⭐\n****************\n"
	for _, e := range entries {
		out += fmt.Sprintf("📋 Node %s\n", e.Node)
		for _, item := range e.Items {
			out += fmt.Sprintf("   (🔑 %s : 🔒 %s)\n", item.Key, item.Value)
		}
	}
	return out
}
