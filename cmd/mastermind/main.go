package main

import (
	"github.com/pegboard/mastermind/internal/cli"
)

func main() {
	cli.Execute()
}
