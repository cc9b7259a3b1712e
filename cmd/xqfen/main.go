package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/atopx/chessboard/internal/engine"
	"github.com/atopx/chessboard/internal/xiangqi"
)

func main() {
	// Command line flags
	fen := flag.String("fen", xiangqi.StartFEN, "Position to inspect (side to move defaults to red)")
	query := flag.Bool("query", false, "Ask the cloud book for the principal variation")
	timeout := flag.Duration("timeout", 3*time.Second, "Cloud query timeout")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-fen FEN] [-query] [move ...]\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Validates a position and renders ICCS moves such as h2e2 as Chinese notation.")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	position := withSideToMove(*fen)
	board := xiangqi.ParseFEN(position)
	fmt.Println(board.String())

	if err := xiangqi.Validate(board); err != nil {
		fmt.Printf("❌ Invalid position: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅ Position is valid")

	moves := flag.Args()
	if *query {
		result, err := engine.NewCloudBook().Query(context.Background(), position, *timeout)
		if err != nil {
			log.Fatalf("Cloud query failed: %v", err)
		}
		fmt.Printf("\nCloud book: score %d, depth %d\n", result.Score, result.Depth)
		if len(moves) == 0 {
			moves = result.PVs
		}
	}

	if len(moves) == 0 {
		return
	}

	fmt.Println()
	if err := renderLine(os.Stdout, board, moves); err != nil {
		log.Fatal(err)
	}
}

// withSideToMove appends red to move when fen carries no side suffix
func withSideToMove(fen string) string {
	fen = strings.TrimSpace(fen)
	if strings.IndexByte(fen, ' ') >= 0 {
		return fen
	}
	return fen + " " + string(xiangqi.CampRed.Char())
}

// renderLine prints each move with its notation, playing the line on board
func renderLine(w io.Writer, board xiangqi.Board, moves []string) error {
	for i, s := range moves {
		m, err := xiangqi.ParseMove(s)
		if err != nil {
			return fmt.Errorf("bad move %q: %w", s, err)
		}
		if board.At(m.From.Row, m.From.Col) == xiangqi.Empty {
			return fmt.Errorf("move %s starts on an empty point", s)
		}
		fmt.Fprintf(w, "%2d. %s  %s\n", i+1, s, xiangqi.Notation(board, m))
		board = board.Apply(m)
	}
	return nil
}
