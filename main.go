// The main package for the quotes-crawler executable.
package main

import (
	"github.com/JakeFAU/quotes-crawler/cmd"
)

func main() {
	cmd.Execute()
}
