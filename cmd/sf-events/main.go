package main

import "github.com/baysound/sf-events/internal/cli"

func main() {
	cli.Execute()
}
