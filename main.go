package main

import "coapnotify/cmd"

func main() {
	cmd.Execute()
}
