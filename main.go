package main

import "github.com/engagekit/crm/cmd"

func main() {
	cmd.Execute()
}
