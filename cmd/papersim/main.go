package main

import "github.com/tradeforge/papersim/internal/cli"

func main() {
	cli.Execute()
}
