// Shieldpool CLI - command-line interface for shielded-pool wallet
// operations: keypair/address generation and cold-start note scanning
// against a running shieldpoold's gossip topics.
package main

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/veilpool/shieldpool/internal/note"
	"github.com/veilpool/shieldpool/internal/p2p"
	"github.com/veilpool/shieldpool/internal/scanner"
	"github.com/veilpool/shieldpool/pkg/field"
	"github.com/veilpool/shieldpool/pkg/types"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("shieldpool-cli v%s\n", version)
	case "help":
		printUsage()
	case "wallet":
		if len(os.Args) < 3 {
			fmt.Println("Usage: shieldpool-cli wallet <new|address> [spending-key-hex]")
			os.Exit(1)
		}
		cmdWallet(os.Args[2:])
	case "scan":
		cmdScan(os.Args[2:])
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("shieldpool-cli - command-line interface for shieldpool wallets")
	fmt.Println()
	fmt.Println("Usage: shieldpool-cli <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  version           Show version information")
	fmt.Println("  help              Show this help message")
	fmt.Println("  wallet new        Generate a new spending key and shielded address")
	fmt.Println("  wallet address <spending-key-hex>")
	fmt.Println("                    Derive a shielded address from an existing spending key")
	fmt.Println("  scan              Cold-start scan a running daemon's gossip topics")
}

func cmdWallet(args []string) {
	switch args[0] {
	case "new":
		var seed [32]byte
		if _, err := cryptorand.Read(seed[:]); err != nil {
			fmt.Fprintf(os.Stderr, "generate spending key: %v\n", err)
			os.Exit(1)
		}
		sk := field.Reduce(seed[:])
		printWallet(sk)

	case "address":
		if len(args) < 2 {
			fmt.Println("Usage: shieldpool-cli wallet address <spending-key-hex>")
			os.Exit(1)
		}
		raw, err := hex.DecodeString(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid spending key: %v\n", err)
			os.Exit(1)
		}
		sk := field.Reduce(raw)
		printWallet(sk)

	default:
		fmt.Printf("Unknown wallet command: %s\n", args[0])
	}
}

func printWallet(sk field.Element) {
	kp := note.Keypair{SpendingKey: sk}
	vk, err := note.DeriveViewingKeypair(sk)
	if err != nil {
		fmt.Fprintf(os.Stderr, "derive viewing keypair: %v\n", err)
		os.Exit(1)
	}
	addr := note.Address{MPK: kp.MasterPublicKey(), ViewingPub: vk.Public}

	skBytes := sk.Bytes()
	fmt.Printf("Spending key: %s\n", hex.EncodeToString(skBytes[:]))
	fmt.Printf("Shielded address: %s\n", addr.String())
}

func cmdScan(args []string) {
	ctx := context.Background()

	node, err := p2p.NewNode(ctx, p2p.DefaultConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to event bus: %v\n", err)
		os.Exit(1)
	}
	defer node.Close()
	node.Start()

	source := scanner.NewPubsubEventSource(node)

	fmt.Println("Listening for pool events; scanning requires a spending key.")
	fmt.Println("Usage: shieldpool-cli scan <spending-key-hex>")
	if len(args) < 1 {
		os.Exit(1)
	}

	raw, err := hex.DecodeString(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid spending key: %v\n", err)
		os.Exit(1)
	}
	sk := field.Reduce(raw)
	kp := note.Keypair{SpendingKey: sk}
	vk, err := note.DeriveViewingKeypair(sk)
	if err != nil {
		fmt.Fprintf(os.Stderr, "derive viewing keypair: %v\n", err)
		os.Exit(1)
	}

	s := scanner.New("cli-scan", kp, vk, source, nopCursorStore{}, nopNullifierChecker{})
	if err := s.Scan(ctx, 256); err != nil {
		fmt.Fprintf(os.Stderr, "scan: %v\n", err)
		os.Exit(1)
	}

	notes, err := s.SpendableNotes(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "spendable notes: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%d spendable note(s)\n", len(notes))
	for _, n := range notes {
		fmt.Printf("  position=%d value=%d\n", n.Position, n.Note.Value)
	}
}

// nopCursorStore keeps no cursor state across process runs; each CLI
// invocation performs a full rescan.
type nopCursorStore struct{}

func (nopCursorStore) GetCursor(ctx context.Context, scanID string) (types.Cursor, error) {
	return types.Cursor{}, nil
}
func (nopCursorStore) SetCursor(ctx context.Context, scanID string, cursor types.Cursor) error {
	return nil
}

// nopNullifierChecker treats nothing as spent on-chain; a real daemon's
// registry should be queried via RPC instead once that surface exists.
type nopNullifierChecker struct{}

func (nopNullifierChecker) Contains(ctx context.Context, n types.Hash) (bool, error) {
	return false, nil
}
