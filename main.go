package main

import "github.com/Seann-Moser/servoseq/cmd"

func main() {
	cmd.Execute()
}
