package main

import "popin-backend/cmd"

func main() {
	cmd.Run()
}
