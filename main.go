package main

import "github.com/ameshkov/goconnect/internal/cmd"

func main() {
	cmd.Main()
}
