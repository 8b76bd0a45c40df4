package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/stormyfocus/gamehub/client"
)

func main() {
	serverURL := flag.String("server", "http://localhost:1235", "relay base url")
	code := flag.String("code", "", "room code")
	name := flag.String("name", "", "player name")
	flag.Parse()

	if *code == "" || *name == "" {
		fmt.Fprintln(os.Stderr, "usage: gamehub-cli -code ABCD -name Alice [-server http://host:port]")
		os.Exit(2)
	}

	c := client.NewClient(client.Config{
		ServerURL:  *serverURL,
		RoomCode:   *code,
		PlayerName: *name,
	})
	if err := c.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
