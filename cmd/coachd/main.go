package main

import "adaptive-coach/internal/cli"

func main() {
	cli.Execute()
}
