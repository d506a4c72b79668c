package main

import (
	"context"
	"os"

	"github.com/accountbook/backend/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
