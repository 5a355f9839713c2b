package main

import "github.com/aitoooooo/redisx/cmd"

func main() {
	cmd.Execute()
}
