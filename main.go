package main

import "github.com/waterwallet/wwdash/cmd"

func main() {
	cmd.Execute()
}
