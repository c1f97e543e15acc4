package main

import "github.com/defizo/silentwatch/cmd"

func main() {
	cmd.Execute()
}
