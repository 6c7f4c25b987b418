package main

import (
	"context"

	"github.com/user/neptun-scraper/cmd/neptun/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
