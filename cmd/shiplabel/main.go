package main

import "github.com/MeKo-Tech/shiplabel/cmd/shiplabel/cmd"

func main() {
	cmd.Execute()
}
