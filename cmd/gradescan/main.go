package main

import "github.com/MeKo-Tech/gradescan/cmd/gradescan/cmd"

func main() {
	cmd.Execute()
}
