package client

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/opd-ai/chatfiles/limits"
)

// CommandKind discriminates parsed console input.
type CommandKind int

const (
	// CommandNothing is produced by empty or unusable input.
	CommandNothing CommandKind = iota
	// CommandEnd quits the client.
	CommandEnd
	// CommandText sends a chat line.
	CommandText
	// CommandRename changes the display name.
	CommandRename
	// CommandConnect establishes a connection.
	CommandConnect
	// CommandUpload pushes a local file into the server store.
	CommandUpload
	// CommandDownload pulls a stored file to a local path.
	CommandDownload
)

// Command is one parsed console line.
type Command struct {
	Kind    CommandKind
	Text    string
	Name    string
	Path    string
	Address string
}

// ParseLine turns one console line into a command. The second result is a
// console hint for the user; every CommandNothing except the one produced
// by an empty line comes with a non-empty hint.
func ParseLine(line string) (Command, string) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "/") {
		return parseText(line)
	}

	words := strings.Fields(line)
	switch words[0] {
	case "/":
		return nothing("Nooooooo, you can't just put a blank symbol after the '/'!")
	case "/q", "/quit", "/exit":
		return Command{Kind: CommandEnd}, ""
	case "/rename", "/r":
		return parseRename(words)
	case "/connect", "/c":
		return parseConnect(words), ""
	case "/upload", "/u":
		return parseUpload(words)
	case "/download", "/d":
		return parseDownload(words)
	default:
		return nothing("Well, yea, you issued a command, but I missed it, sorry...")
	}
}

func nothing(hint string) (Command, string) {
	return Command{Kind: CommandNothing}, hint
}

func parseText(line string) (Command, string) {
	if line == "" {
		return Command{Kind: CommandNothing}, ""
	}
	if len(line) > limits.MaxText {
		return nothing("No way, sorry, this is way too long")
	}
	return Command{Kind: CommandText, Text: line}, ""
}

func parseRename(words []string) (Command, string) {
	if len(words) < 2 {
		return nothing("Rename to who? Vasya, Petia - who exactly?")
	}
	if len(words[1]) > limits.MaxName {
		return nothing("No way, sorry, this is way too long")
	}
	return Command{Kind: CommandRename, Name: words[1]}, ""
}

func parseConnect(words []string) Command {
	switch {
	case len(words) >= 3:
		return Command{Kind: CommandConnect, Address: fmt.Sprintf("%s:%s", words[1], words[2])}
	case len(words) >= 2:
		return Command{Kind: CommandConnect, Address: fmt.Sprintf("%s:%d", words[1], limits.DefaultPort)}
	default:
		return Command{Kind: CommandConnect, Address: fmt.Sprintf("localhost:%d", limits.DefaultPort)}
	}
}

func parseUpload(words []string) (Command, string) {
	if len(words) < 2 {
		return nothing("Everyone keeps telling 'send a file', 'get a file', but only the few of them actually know the right path")
	}

	path := words[1]
	name := filepath.Base(path)
	if len(words) >= 3 {
		name = words[2]
	}

	if _, err := os.Stat(path); err != nil {
		return nothing("No, I can't find such a file")
	}
	return Command{Kind: CommandUpload, Name: name, Path: path}, ""
}

func parseDownload(words []string) (Command, string) {
	if len(words) < 2 {
		return nothing("There's one crucial ingredient missing. Go on, try to find it out")
	}

	name := words[1]
	path := name
	if len(words) >= 3 {
		path = words[2]
	}

	if _, err := os.Stat(path); err == nil {
		return nothing("No, wait, the file already exists!")
	}
	return Command{Kind: CommandDownload, Name: name, Path: path}, ""
}
