package main

import "eduhacktech-backend/cmd"

func main() {
	cmd.Run()
}
