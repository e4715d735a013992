package main

import (
	"context"
	"fmt"
	"os"

	"snap2sell/commands"
)

func main() {
	if err := commands.Execute(context.Background()); err != nil {
		if !commands.Reported(err) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
