package main

import "sonic-alerts/internal/cli"

func main() {
	cli.Execute()
}
