package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type commandKind int

const (
	cmdSend commandKind = iota
	cmdOpen
	cmdClose
	cmdEdit
	cmdReset
	cmdStarters
	cmdQuit
	cmdHelp
)

type command struct {
	kind        commandKind
	text        string
	index       int
	imageURL    string
	instruction string
}

var errUsage = errors.New("usage")

// parseCommand reads one line of input. Anything not starting with a slash is
// a message for the concierge.
func parseCommand(line string) (command, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return command{kind: cmdSend, text: line}, nil
	}

	name, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)
	switch strings.ToLower(name) {
	case "open", "o":
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 {
			return command{}, fmt.Errorf("%w: /open <number>", errUsage)
		}
		return command{kind: cmdOpen, index: n}, nil
	case "close":
		return command{kind: cmdClose}, nil
	case "edit":
		url, instruction, ok := strings.Cut(rest, " ")
		instruction = strings.TrimSpace(instruction)
		if !ok || url == "" || instruction == "" {
			return command{}, fmt.Errorf("%w: /edit <image url> <instruction>", errUsage)
		}
		return command{kind: cmdEdit, imageURL: url, instruction: instruction}, nil
	case "reset":
		return command{kind: cmdReset}, nil
	case "starters", "s":
		return command{kind: cmdStarters}, nil
	case "quit", "q":
		return command{kind: cmdQuit}, nil
	case "help", "h", "?":
		return command{kind: cmdHelp}, nil
	default:
		return command{}, fmt.Errorf("%w: unknown command /%s", errUsage, name)
	}
}
