package main

import "github.com/vibast-solutions/ms-go-svea/cmd"

func main() {
	cmd.Execute()
}
