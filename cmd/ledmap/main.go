package main

import "github.com/MeKo-Tech/ledmap/cmd/ledmap/cmd"

func main() {
	cmd.Execute()
}
