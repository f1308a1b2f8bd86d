package main

import (
	"fmt"
	"os"
	"strings"

	"campusblogs/service"
)

// CliVersion is reported by the version command.
const CliVersion = "1.0.0"

var exit = os.Exit

func main() {
	RealMain()
}

// RealMain dispatches os.Args and exits with the command's status.
func RealMain() {
	if len(os.Args) < 2 {
		printHelp()
		exit(1)
		return
	}

	cmd := strings.ToLower(os.Args[1])
	switch cmd {
	case "version", "--version", "-v":
		fmt.Printf("campusblogs version %s\n", CliVersion)
	case "help", "-h", "--help":
		printHelp()
	default:
		args := append([]string{cmd}, os.Args[2:]...)
		if code := service.HandleCommand(args); code != 0 {
			exit(code)
		}
	}
}

func printHelp() {
	helpText := `Usage: campusblogs <command> [options]
Commands:
  help                           Display this help message.
  version                        Show version information.
  serve                          Run the blog API server.
  init | clean | backup          Manage the database.
  restore <file>                 Restore the database from a backup.
  reconcile                      Recount comments and fix drifted counters.
  token <userId> [name] [email]  Issue a development identity token.

Every command except help and version accepts -config <file> and -yes.
`
	fmt.Println(helpText)
}
