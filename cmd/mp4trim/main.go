package main

import "github.com/forPelevin/mp4trim/internal/cli"

func main() {
	cli.Main()
}
